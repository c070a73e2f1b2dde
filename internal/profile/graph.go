// Package profile builds the in-memory derived view of a submitted NF-FG
// that the Realiser walks during realisation.
package profile

import (
	"strings"

	"domain-orchestrator/internal/nffg"
)

// Graph is the ProfileGraph: an indexed, partitioned view of a validated
// NFFG, rebuilt fresh for every postGraph/putGraph.
type Graph struct {
	endpoints map[string]*nffg.Endpoint // graph_endpoint_id -> Endpoint
	flowRules []nffg.FlowRule
	vnfs      map[string]*nffg.Vnf // graph_vnf_id -> Vnf
}

// Build constructs a Graph from a validated NFFG.
func Build(graph nffg.NFFG) *Graph {
	g := &Graph{
		endpoints: make(map[string]*nffg.Endpoint, len(graph.Endpoints)),
		vnfs:      make(map[string]*nffg.Vnf, len(graph.Vnfs)),
	}
	for i := range graph.Endpoints {
		ep := graph.Endpoints[i]
		g.endpoints[ep.GraphID] = &ep
	}
	for i := range graph.Vnfs {
		v := graph.Vnfs[i]
		g.vnfs[v.GraphVnfID] = &v
	}
	g.flowRules = append(g.flowRules, graph.FlowRules...)
	return g
}

// Endpoint looks up an endpoint by its NF-FG symbolic id.
func (g *Graph) Endpoint(gid string) (*nffg.Endpoint, bool) {
	ep, ok := g.endpoints[gid]
	return ep, ok
}

// EndpointFlowRules returns the flow rules whose ingress match references
// an endpoint directly (match.port_in = "endpoint:<gid>"), i.e. the flows
// the Realiser installs starting from a user-facing attachment point.
func (g *Graph) EndpointFlowRules() []nffg.FlowRule {
	var out []nffg.FlowRule
	for _, f := range g.flowRules {
		if f.Match.PortInType == nffg.PortInEndpoint {
			out = append(out, f)
		}
	}
	return out
}

// AllFlowRules returns every logical flow rule in the graph.
func (g *Graph) AllFlowRules() []nffg.FlowRule {
	return g.flowRules
}

// DetachedVnfs returns VNFs whose flows only ever touch endpoints, never
// another VNF's port.
func (g *Graph) DetachedVnfs() []*nffg.Vnf {
	var out []*nffg.Vnf
	for gid, v := range g.vnfs {
		if !g.vnfIsAttached(gid) {
			out = append(out, v)
		}
	}
	return out
}

// AttachedVnfs returns VNFs with at least one flow referencing another
// VNF's port -- a configuration the Realiser rejects as unsupported.
func (g *Graph) AttachedVnfs() []*nffg.Vnf {
	var out []*nffg.Vnf
	for gid, v := range g.vnfs {
		if g.vnfIsAttached(gid) {
			out = append(out, v)
		}
	}
	return out
}

func (g *Graph) vnfIsAttached(vnfGID string) bool {
	for _, f := range g.FlowsFromVnf(vnfGID) {
		for _, a := range f.Actions {
			if a.Kind == nffg.ActionOutput && strings.HasPrefix(a.OutputTo, "vnf:") {
				return true
			}
		}
	}
	return false
}

// FlowsFromVnf returns the flow rules whose ingress match references a port
// of the VNF identified by vnfGID ("vnf:<vnf-id>:<port-id>").
func (g *Graph) FlowsFromVnf(vnfGID string) []nffg.FlowRule {
	prefix := "vnf:" + vnfGID + ":"
	var out []nffg.FlowRule
	for _, f := range g.flowRules {
		if f.Match.PortInType == nffg.PortInVnf && strings.HasPrefix(f.Match.PortIn, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// Vnf looks up a VNF by its NF-FG symbolic id.
func (g *Graph) Vnf(gid string) (*nffg.Vnf, bool) {
	v, ok := g.vnfs[gid]
	return v, ok
}

// GreTunnelEndpoints returns every endpoint still tagged gre-tunnel, i.e.
// not yet rewritten by GRE tunnel setup.
func (g *Graph) GreTunnelEndpoints() []*nffg.Endpoint {
	var out []*nffg.Endpoint
	for _, ep := range g.endpoints {
		if ep.Kind == nffg.EndpointGreTunnel {
			out = append(out, ep)
		}
	}
	return out
}

// RewriteEndpoint applies fn to the endpoint identified by gid in place,
// the hook GRE tunnel setup uses to turn a gre-tunnel endpoint into an
// interface endpoint bound to the bridge port the controller returned.
func (g *Graph) RewriteEndpoint(gid string, fn func(*nffg.Endpoint)) {
	if ep, ok := g.endpoints[gid]; ok {
		fn(ep)
	}
}
