package nffg

import "strings"

// Diff compares a previously persisted graph against a newly submitted one
// and returns an NFFG whose every endpoint, flow rule and VNF carries the
// Status a PUT reconciliation needs: new, already_deployed, to_be_deleted,
// or to_be_updated. GraphStore.UpdateGraph applies the result verbatim.
func Diff(old, updated NFFG) NFFG {
	oldEps := indexEndpoints(old.Endpoints)
	newEps := indexEndpoints(updated.Endpoints)

	updatedEps := make(map[string]bool)
	var diffEps []Endpoint
	for gid, ep := range newEps {
		oep, existed := oldEps[gid]
		e := *ep
		switch {
		case !existed:
			e.Status = StatusNew
			updatedEps[gid] = true
		case endpointChanged(oep, ep):
			// Same gid, changed physical attachment: delete-and-reinsert like
			// an updated VNF, and mark it so dependent flow rules reinstall.
			e.Status = StatusToBeUpdated
			updatedEps[gid] = true
		default:
			e.Status = StatusAlreadyDeployed
		}
		diffEps = append(diffEps, e)
	}
	for gid, ep := range oldEps {
		if _, stillPresent := newEps[gid]; !stillPresent {
			e := *ep
			e.Status = StatusToBeDeleted
			diffEps = append(diffEps, e)
		}
	}

	oldFlows := indexFlows(old.FlowRules)
	newFlows := indexFlows(updated.FlowRules)
	var diffFlows []FlowRule
	for gid, f := range newFlows {
		nf := *f
		_, existed := oldFlows[gid]
		switch {
		case !existed:
			nf.Status = StatusNew
		case flowReferencesUpdatedEndpoint(f, updatedEps):
			nf.Status = StatusNew
		default:
			nf.Status = StatusAlreadyDeployed
		}
		diffFlows = append(diffFlows, nf)
	}
	for gid, f := range oldFlows {
		if _, stillPresent := newFlows[gid]; !stillPresent {
			d := *f
			d.Status = StatusToBeDeleted
			diffFlows = append(diffFlows, d)
		}
	}

	oldVnfs := indexVnfs(old.Vnfs)
	newVnfs := indexVnfs(updated.Vnfs)
	var diffVnfs []Vnf
	for gid, v := range newVnfs {
		nv := *v
		ov, existed := oldVnfs[gid]
		switch {
		case !existed:
			nv.Status = StatusNew
		case vnfChanged(ov, v):
			nv.Status = StatusToBeUpdated
		default:
			nv.Status = StatusAlreadyDeployed
		}
		diffVnfs = append(diffVnfs, nv)
	}
	for gid, v := range oldVnfs {
		if _, stillPresent := newVnfs[gid]; !stillPresent {
			d := *v
			d.Status = StatusToBeDeleted
			diffVnfs = append(diffVnfs, d)
		}
	}

	return NFFG{ID: updated.ID, Endpoints: diffEps, FlowRules: diffFlows, Vnfs: diffVnfs}
}

func indexEndpoints(eps []Endpoint) map[string]*Endpoint {
	out := make(map[string]*Endpoint, len(eps))
	for i := range eps {
		out[eps[i].GraphID] = &eps[i]
	}
	return out
}

func indexFlows(flows []FlowRule) map[string]*FlowRule {
	out := make(map[string]*FlowRule, len(flows))
	for i := range flows {
		out[flows[i].GraphFlowRuleID] = &flows[i]
	}
	return out
}

func indexVnfs(vnfs []Vnf) map[string]*Vnf {
	out := make(map[string]*Vnf, len(vnfs))
	for i := range vnfs {
		out[vnfs[i].GraphVnfID] = &vnfs[i]
	}
	return out
}

// flowReferencesUpdatedEndpoint reports whether f's ingress match or any
// output action names an endpoint gid that this diff introduces or whose
// physical attachment it changes, the §4.5.2 rule that forces reinstallation
// to pick up the endpoint's new port assignment.
func flowReferencesUpdatedEndpoint(f *FlowRule, updatedEps map[string]bool) bool {
	if gid, ok := endpointGID(f.Match.PortIn); ok && updatedEps[gid] {
		return true
	}
	for _, a := range f.Actions {
		if gid, ok := endpointGID(a.OutputTo); ok && updatedEps[gid] {
			return true
		}
	}
	return false
}

func endpointGID(ref string) (string, bool) {
	const prefix = "endpoint:"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	return strings.TrimPrefix(ref, prefix), true
}

// endpointChanged reports whether an endpoint kept its gid but moved to a
// different physical attachment between old and new -- switch, interface,
// VLAN tag, or tunnel endpoint -- the case flowReferencesUpdatedEndpoint
// needs to see in order to force the flow rules that reference it back to
// new so they get reinstalled against the new attachment.
func endpointChanged(old, updated *Endpoint) bool {
	if (old.Port == nil) != (updated.Port == nil) {
		return true
	}
	if old.Port == nil {
		return false
	}
	op, np := old.Port, updated.Port
	return op.SwitchID != np.SwitchID ||
		op.InterfaceName != np.InterfaceName ||
		op.VlanID != np.VlanID ||
		op.IPv4Address != np.IPv4Address ||
		op.TunnelRemoteIP != np.TunnelRemoteIP ||
		op.GreKey != np.GreKey
}

// vnfChanged reports whether a VNF's port set or functional wiring changed
// between old and new, the §4.5.2 condition that flips it to to_be_updated
// instead of leaving it already_deployed.
func vnfChanged(old, updated *Vnf) bool {
	if old.FunctionalCapability != updated.FunctionalCapability {
		return true
	}
	if old.Template != updated.Template {
		return true
	}
	if len(old.Ports) != len(updated.Ports) {
		return true
	}
	oldPorts := make(map[string]string, len(old.Ports))
	for _, p := range old.Ports {
		oldPorts[p.GraphPortID] = p.Name
	}
	for _, p := range updated.Ports {
		if name, ok := oldPorts[p.GraphPortID]; !ok || name != p.Name {
			return true
		}
	}
	return false
}
