// Package realiser implements the graph realisation engine: translating a
// validated NF-FG's logical flow rules into per-hop physical OpenFlow
// entries along a shortest path, allocating conflict-free transport VLANs,
// detecting collisions, and activating the VNF applications a graph uses.
package realiser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/controller"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/profile"
	"domain-orchestrator/internal/resourcedescription"
	"domain-orchestrator/internal/store"
	"domain-orchestrator/internal/topology"
	"domain-orchestrator/internal/vlan"
)

// appActivePollInterval is the spec's fixed poll cadence for isAppActive.
const appActivePollInterval = 100 * time.Millisecond

// Realiser is the central algorithm wired from every leaf component it
// drives: TopologyProvider, VlanAllocator, ControllerClient, GraphStore and
// the published ResourceDescription.
type Realiser struct {
	Topology  *topology.Provider
	Vlans     *vlan.Allocator
	Client    controller.Client
	Store     *store.Store
	Resources *resourcedescription.ResourceDescription
	Config    *config.Config
}

// Realise installs every new logical flow rule in p under sessionID and
// activates the detached VNFs it references. userID/graphID identify the
// owning request and are threaded into each VNF's initial configuration
// push (§4.5.7 step 4). It assumes preconditions (§4.5.1) were already
// checked by the validation pipeline.
func (r *Realiser) Realise(ctx context.Context, userID, graphID, sessionID string, p *profile.Graph) error {
	if err := r.setUpGreTunnels(ctx, p); err != nil {
		return err
	}
	for _, f := range p.EndpointFlowRules() {
		if f.Status == nffg.StatusAlreadyDeployed {
			continue
		}
		if err := r.realiseFlowRule(ctx, sessionID, p, f); err != nil {
			return err
		}
	}
	if len(p.AttachedVnfs()) > 0 {
		return apperrors.UnsupportedFeature("flows attaching one VNF to another VNF are not supported")
	}
	for _, v := range p.DetachedVnfs() {
		if err := r.activateVnf(ctx, userID, graphID, p, v); err != nil {
			return err
		}
	}
	return nil
}

// InvolvedSwitches returns every switch id a graph's not-yet-deployed
// endpoint-to-endpoint flow rules would route through: the set the
// SessionCoordinator locks, in canonical sorted order, before driving
// realisation (§5).
func (r *Realiser) InvolvedSwitches(ctx context.Context, p *profile.Graph) ([]string, error) {
	seen := make(map[string]bool)
	for _, f := range p.EndpointFlowRules() {
		if f.Status == nffg.StatusAlreadyDeployed {
			continue
		}
		epInGID := strings.TrimPrefix(f.Match.PortIn, "endpoint:")
		epIn, ok := p.Endpoint(epInGID)
		if !ok {
			continue
		}
		seen[epIn.Switch()] = true

		if f.HasDrop() {
			continue
		}
		outAction, ok := f.OutputAction()
		if !ok {
			continue
		}
		outGID := strings.TrimPrefix(outAction.OutputTo, "endpoint:")
		epOut, ok := p.Endpoint(outGID)
		if !ok {
			continue
		}
		if epIn.Switch() == epOut.Switch() {
			continue
		}
		path, err := r.Topology.ShortestPath(ctx, epIn.Switch(), epOut.Switch())
		if err != nil {
			return nil, apperrors.ControllerError("shortestPath", err)
		}
		for _, s := range path {
			seen[s] = true
		}
	}
	switches := make([]string, 0, len(seen))
	for s := range seen {
		switches = append(switches, s)
	}
	return switches, nil
}

// realiseFlowRule implements §4.5.4: the cross-switch path transform.
func (r *Realiser) realiseFlowRule(ctx context.Context, sessionID string, p *profile.Graph, f nffg.FlowRule) error {
	epInGID := strings.TrimPrefix(f.Match.PortIn, "endpoint:")
	epIn, ok := p.Endpoint(epInGID)
	if !ok {
		return apperrors.GraphError(fmt.Sprintf("unknown ingress endpoint %q", epInGID))
	}

	if f.HasDrop() {
		match := f.Match.Clone()
		if epIn.Kind == nffg.EndpointVlan {
			vid := epIn.VlanID()
			match.VlanID = &vid
		}
		return r.installHop(ctx, sessionID, f, epIn.Switch(), match, []nffg.Action{{Kind: nffg.ActionDrop}}, 0)
	}

	outAction, ok := f.OutputAction()
	if !ok {
		return apperrors.GraphError(fmt.Sprintf("flow %q has no output action", f.GraphFlowRuleID))
	}
	outGID := strings.TrimPrefix(outAction.OutputTo, "endpoint:")
	epOut, ok := p.Endpoint(outGID)
	if !ok {
		return apperrors.GraphError(fmt.Sprintf("unknown egress endpoint %q", outGID))
	}

	var path []string
	if epIn.Switch() == epOut.Switch() {
		path = []string{epIn.Switch()}
	} else {
		found, err := r.Topology.ShortestPath(ctx, epIn.Switch(), epOut.Switch())
		if err != nil {
			return apperrors.ControllerError("shortestPath", err)
		}
		if found == nil {
			return apperrors.NoPath(epIn.Switch(), epOut.Switch())
		}
		path = found
	}

	if err := r.rejectTransitAmbiguity(ctx, path, epIn, epOut); err != nil {
		return err
	}

	push, set, pop, base := partitionActions(f.Actions)

	var internalIn *int
	if f.Match.VlanID != nil {
		v := *f.Match.VlanID
		internalIn = &v
	}

	for i := range path {
		pos := hopPosition(i, len(path))
		hop := path[i]

		portIn, err := r.resolvePortIn(ctx, pos, epIn, hop, path, i)
		if err != nil {
			return err
		}
		portOut, err := r.resolvePortOut(ctx, pos, epOut, hop, path, i)
		if err != nil {
			return err
		}

		match := f.Match.Clone()
		match.PortIn = portIn
		match.PortInType = nffg.PortInPort

		var internalOut *int
		hasNext := i < len(path)-1
		if hasNext {
			nextPortIn, err := r.Topology.SwitchPortIn(ctx, path[i+1], hop)
			if err != nil {
				return apperrors.ControllerError("switchPortIn", err)
			}
			vid, err := r.Vlans.FreeVlanOn(ctx, path[i+1], nextPortIn, match, internalIn)
			if err != nil {
				return err
			}
			internalOut = vid
		}

		if internalIn != nil {
			match.VlanID = internalIn
		} else if i == 0 {
			match.VlanID = f.Match.VlanID
		}

		actions := r.synthesiseActions(pos, epIn, epOut, push, set, pop, base, internalOut, portOut)

		if err := r.installHop(ctx, sessionID, f, hop, match, actions, i); err != nil {
			return err
		}

		internalIn = internalOut
	}
	return nil
}

// rejectTransitAmbiguity rejects a path where an endpoint's own interface
// coincides with the port facing the next/previous hop (§4.5.4 step 3).
func (r *Realiser) rejectTransitAmbiguity(ctx context.Context, path []string, epIn, epOut *nffg.Endpoint) error {
	if len(path) < 2 {
		return nil
	}
	firstOut, err := r.Topology.SwitchPortOut(ctx, path[0], path[1])
	if err != nil {
		return apperrors.ControllerError("switchPortOut", err)
	}
	if firstOut != "" && firstOut == epIn.Interface() {
		return apperrors.GraphError("ingress endpoint sits on a transit port")
	}
	lastIn, err := r.Topology.SwitchPortIn(ctx, path[len(path)-1], path[len(path)-2])
	if err != nil {
		return apperrors.ControllerError("switchPortIn", err)
	}
	if lastIn != "" && lastIn == epOut.Interface() {
		return apperrors.GraphError("egress endpoint sits on a transit port")
	}
	return nil
}

// hopPosition tags a hop's role in the path: -2 single-switch, -1 first,
// 1 last, 0 middle.
func hopPosition(i, pathLen int) int {
	switch {
	case pathLen == 1:
		return -2
	case i == 0:
		return -1
	case i == pathLen-1:
		return 1
	default:
		return 0
	}
}

func (r *Realiser) resolvePortIn(ctx context.Context, pos int, epIn *nffg.Endpoint, hop string, path []string, i int) (string, error) {
	if pos == -1 || pos == -2 {
		return r.Topology.PortNameOf(ctx, epIn.Switch(), epIn.Interface())
	}
	port, err := r.Topology.SwitchPortIn(ctx, hop, path[i-1])
	if err != nil {
		return "", apperrors.ControllerError("switchPortIn", err)
	}
	return port, nil
}

func (r *Realiser) resolvePortOut(ctx context.Context, pos int, epOut *nffg.Endpoint, hop string, path []string, i int) (string, error) {
	if pos == 1 || pos == -2 {
		return r.Topology.PortNameOf(ctx, epOut.Switch(), epOut.Interface())
	}
	port, err := r.Topology.SwitchPortOut(ctx, hop, path[i+1])
	if err != nil {
		return "", apperrors.ControllerError("switchPortOut", err)
	}
	return port, nil
}

func partitionActions(actions []nffg.Action) (push, set *int, pop bool, base []nffg.Action) {
	for _, a := range actions {
		switch a.Kind {
		case nffg.ActionPushVlan:
			v := a.SetVlanID
			push = &v
		case nffg.ActionSetVlanID:
			v := a.SetVlanID
			set = &v
		case nffg.ActionPopVlan:
			pop = true
		case nffg.ActionOutput, nffg.ActionDrop:
			// output handled separately; never part of base
		default:
			base = append(base, a)
		}
	}
	return push, set, pop, base
}

// synthesiseActions implements the Generic VLAN-stacking algorithm of
// §4.5.4. The jolnet configuration switch instead emits no push/pop, for
// environments that pre-tag all traffic: first and middle hops get a bare
// set_vlan_id carrying the next hop's transport id, while the last hop and
// a single-switch path get no set_vlan_id.
func (r *Realiser) synthesiseActions(pos int, epIn, epOut *nffg.Endpoint, push, set *int, pop bool, base []nffg.Action, internalOut *int, portOut string) []nffg.Action {
	if r.Config != nil && r.Config.OtherOptions.Jolnet {
		var actions []nffg.Action
		if internalOut != nil {
			actions = append(actions, nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: *internalOut})
		}
		actions = append(actions, base...)
		actions = append(actions, nffg.Action{Kind: nffg.ActionOutput, OutputToPort: portOut})
		return actions
	}

	var actions []nffg.Action

	switch pos {
	case -1, -2:
		if epIn.Kind == nffg.EndpointVlan {
			actions = append(actions, nffg.Action{Kind: nffg.ActionPopVlan})
		}
		if pop {
			actions = append(actions, nffg.Action{Kind: nffg.ActionPopVlan})
		}
		if pos == -1 {
			if internalOut != nil {
				actions = append(actions,
					nffg.Action{Kind: nffg.ActionPushVlan},
					nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: *internalOut})
			}
		}
	case 0:
		if internalOut != nil {
			actions = append(actions, nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: *internalOut})
		}
	case 1:
		actions = append(actions, nffg.Action{Kind: nffg.ActionPopVlan})
	}

	if pos == 1 || pos == -2 {
		actions = append(actions, base...)
		if push != nil {
			actions = append(actions,
				nffg.Action{Kind: nffg.ActionPushVlan},
				nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: *push})
		} else if set != nil {
			actions = append(actions, nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: *set})
		}
		if epOut.Kind == nffg.EndpointVlan {
			actions = append(actions,
				nffg.Action{Kind: nffg.ActionPushVlan},
				nffg.Action{Kind: nffg.ActionSetVlanID, SetVlanID: epOut.VlanID()})
		}
	}

	actions = append(actions, nffg.Action{Kind: nffg.ActionOutput, OutputToPort: portOut})
	return actions
}

// installHop performs flow-name uniqueness (§4.5.6), collision detection
// (§4.5.5), pushes the flow via ControllerClient, and records it in
// GraphStore.
func (r *Realiser) installHop(ctx context.Context, sessionID string, logical nffg.FlowRule, switchID string, match nffg.Match, actions []nffg.Action, hopIndex int) error {
	internalID, err := r.uniqueInternalID(ctx, switchID, logical.GraphFlowRuleID, hopIndex)
	if err != nil {
		return err
	}

	if existing, err := r.Store.FlowOnSwitch(ctx, switchID, match); err != nil {
		return err
	} else if existing != nil {
		return apperrors.GraphError(fmt.Sprintf("collision on switch %s", switchID))
	}

	external := nffg.FlowRule{
		GraphFlowRuleID: logical.GraphFlowRuleID,
		InternalID:      internalID,
		SwitchID:        switchID,
		Type:            nffg.FlowRuleExternal,
		Priority:        logical.Priority,
		Status:          nffg.StatusNew,
		Match:           match,
		Actions:         actions,
	}

	if !r.Config.DomainOrchestrator.DetachedMode {
		spec := controller.FlowSpec{
			Name:     internalID,
			Priority: logical.Priority,
			Match:    toWireMatch(match),
			Actions:  toWireActions(actions),
		}
		if err := r.Client.CreateFlow(ctx, switchID, spec); err != nil {
			return apperrors.ControllerError("createFlow", err)
		}
	}

	if _, err := r.Store.AddFlowRule(ctx, sessionID, external); err != nil {
		return err
	}
	return nil
}

// uniqueInternalID implements §4.5.6: "<graph_flow_rule_id>_<i>", bumping
// the suffix while a row with that exact name exists on the switch.
func (r *Realiser) uniqueInternalID(ctx context.Context, switchID, graphFlowRuleID string, hopIndex int) (string, error) {
	suffix := hopIndex
	for {
		candidate := graphFlowRuleID + "_" + strconv.Itoa(suffix)
		existing, err := r.Store.FlowWithInternalID(ctx, switchID, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		suffix++
	}
}

func toWireMatch(m nffg.Match) map[string]interface{} {
	out := map[string]interface{}{"port_in": m.PortIn}
	if m.VlanID != nil {
		out["vlan_id"] = *m.VlanID
	}
	if m.EtherType != nil {
		out["eth_type"] = *m.EtherType
	}
	if m.SrcMAC != "" {
		out["src_mac"] = m.SrcMAC
	}
	if m.DstMAC != "" {
		out["dst_mac"] = m.DstMAC
	}
	if m.SrcIP != "" {
		out["src_ip"] = m.SrcIP
	}
	if m.DstIP != "" {
		out["dst_ip"] = m.DstIP
	}
	return out
}

func toWireActions(actions []nffg.Action) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(actions))
	for _, a := range actions {
		entry := map[string]interface{}{"type": string(a.Kind)}
		switch a.Kind {
		case nffg.ActionOutput:
			entry["port"] = a.OutputToPort
		case nffg.ActionSetVlanID:
			entry["vlan_id"] = a.SetVlanID
		}
		out = append(out, entry)
	}
	return out
}
