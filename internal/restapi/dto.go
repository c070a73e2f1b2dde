package restapi

import "domain-orchestrator/internal/nffg"

// nffgWire is the JSON wire shape of an NF-FG request/response body. Field
// names follow the REST API table: POST/PUT echo back {"nffg-uuid": id},
// GET returns the full graph under these names.
type nffgWire struct {
	ID        string         `json:"id,omitempty"`
	Endpoints []endpointWire `json:"end-points"`
	FlowRules []flowRuleWire `json:"flow-rules"`
	Vnfs      []vnfWire      `json:"vnfs"`
}

type endpointWire struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Type           string `json:"type"`
	SwitchID       string `json:"node_id,omitempty"`
	Interface      string `json:"interface,omitempty"`
	VlanID         int    `json:"vlan_id,omitempty"`
	IPv4Address    string `json:"ipv4_address,omitempty"`
	TunnelRemoteIP string `json:"tunnel_remote_ip,omitempty"`
	GreKey         string `json:"gre_key,omitempty"`
}

type matchWire struct {
	PortIn       string `json:"port_in"`
	EtherType    *int   `json:"ether_type,omitempty"`
	VlanID       *int   `json:"vlan_id,omitempty"`
	VlanPriority *int   `json:"vlan_priority,omitempty"`
	SrcMAC       string `json:"src_mac,omitempty"`
	DstMAC       string `json:"dst_mac,omitempty"`
	SrcIP        string `json:"src_ip,omitempty"`
	DstIP        string `json:"dst_ip,omitempty"`
	Tos          *int   `json:"tos,omitempty"`
	SrcPort      *int   `json:"src_port,omitempty"`
	DstPort      *int   `json:"dst_port,omitempty"`
	Protocol     *int   `json:"protocol,omitempty"`
}

type actionWire struct {
	Kind            string `json:"kind"`
	OutputTo        string `json:"output_to,omitempty"`
	SetVlanID       int    `json:"set_vlan_id,omitempty"`
	SetVlanPriority int    `json:"set_vlan_priority,omitempty"`
	SetEthSrc       string `json:"set_eth_src,omitempty"`
	SetEthDst       string `json:"set_eth_dst,omitempty"`
	SetIPSrc        string `json:"set_ip_src,omitempty"`
	SetIPDst        string `json:"set_ip_dst,omitempty"`
}

type flowRuleWire struct {
	ID       string       `json:"id"`
	Priority int          `json:"priority,omitempty"`
	Match    matchWire    `json:"match"`
	Actions  []actionWire `json:"actions"`
}

type vnfWire struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Template string        `json:"template,omitempty"`
	Ports    []vnfPortWire `json:"ports"`
}

type vnfPortWire struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func fromWire(w nffgWire) nffg.NFFG {
	g := nffg.NFFG{ID: w.ID}
	for _, e := range w.Endpoints {
		ep := nffg.Endpoint{
			GraphID: e.ID,
			Name:    e.Name,
			Kind:    nffg.EndpointKind(e.Type),
		}
		if e.SwitchID != "" || e.Interface != "" {
			ep.Port = &nffg.Port{
				GraphPortID:    e.ID,
				SwitchID:       e.SwitchID,
				InterfaceName:  e.Interface,
				VlanID:         e.VlanID,
				IPv4Address:    e.IPv4Address,
				TunnelRemoteIP: e.TunnelRemoteIP,
				GreKey:         e.GreKey,
			}
		}
		g.Endpoints = append(g.Endpoints, ep)
	}
	for _, f := range w.FlowRules {
		fr := nffg.FlowRule{
			GraphFlowRuleID: f.ID,
			Priority:        f.Priority,
			Match:           matchFromWire(f.Match),
		}
		for _, a := range f.Actions {
			fr.Actions = append(fr.Actions, nffg.Action{
				Kind:            nffg.ActionKind(a.Kind),
				OutputTo:        a.OutputTo,
				SetVlanID:       a.SetVlanID,
				SetVlanPriority: a.SetVlanPriority,
				SetEthSrc:       a.SetEthSrc,
				SetEthDst:       a.SetEthDst,
				SetIPSrc:        a.SetIPSrc,
				SetIPDst:        a.SetIPDst,
			})
		}
		if fr.Match.PortIn != "" {
			fr.Match.PortInType = portInType(fr.Match.PortIn)
		}
		g.FlowRules = append(g.FlowRules, fr)
	}
	for _, v := range w.Vnfs {
		vnf := nffg.Vnf{GraphVnfID: v.ID, Name: v.Name, Template: v.Template, FunctionalCapability: v.Template}
		for _, p := range v.Ports {
			vnf.Ports = append(vnf.Ports, nffg.VnfPort{GraphPortID: p.ID, Name: p.Name})
		}
		g.Vnfs = append(g.Vnfs, vnf)
	}
	return g
}

func portInType(ref string) nffg.PortInType {
	switch {
	case len(ref) > 9 && ref[:9] == "endpoint:":
		return nffg.PortInEndpoint
	case len(ref) > 4 && ref[:4] == "vnf:":
		return nffg.PortInVnf
	default:
		return nffg.PortInPort
	}
}

func matchFromWire(m matchWire) nffg.Match {
	return nffg.Match{
		PortIn:       m.PortIn,
		EtherType:    m.EtherType,
		VlanID:       m.VlanID,
		VlanPriority: m.VlanPriority,
		SrcMAC:       m.SrcMAC,
		DstMAC:       m.DstMAC,
		SrcIP:        m.SrcIP,
		DstIP:        m.DstIP,
		Tos:          m.Tos,
		SrcPort:      m.SrcPort,
		DstPort:      m.DstPort,
		Protocol:     m.Protocol,
	}
}

func toWire(g nffg.NFFG) nffgWire {
	w := nffgWire{ID: g.ID}
	for _, ep := range g.Endpoints {
		e := endpointWire{ID: ep.GraphID, Name: ep.Name, Type: string(ep.Kind)}
		if ep.Port != nil {
			e.SwitchID = ep.Port.SwitchID
			e.Interface = ep.Port.InterfaceName
			e.VlanID = ep.Port.VlanID
			e.IPv4Address = ep.Port.IPv4Address
			e.TunnelRemoteIP = ep.Port.TunnelRemoteIP
			e.GreKey = ep.Port.GreKey
		}
		w.Endpoints = append(w.Endpoints, e)
	}
	for _, f := range g.FlowRules {
		fr := flowRuleWire{
			ID:       f.GraphFlowRuleID,
			Priority: f.Priority,
			Match: matchWire{
				PortIn: f.Match.PortIn, EtherType: f.Match.EtherType, VlanID: f.Match.VlanID,
				VlanPriority: f.Match.VlanPriority, SrcMAC: f.Match.SrcMAC, DstMAC: f.Match.DstMAC,
				SrcIP: f.Match.SrcIP, DstIP: f.Match.DstIP, Tos: f.Match.Tos,
				SrcPort: f.Match.SrcPort, DstPort: f.Match.DstPort, Protocol: f.Match.Protocol,
			},
		}
		for _, a := range f.Actions {
			fr.Actions = append(fr.Actions, actionWire{
				Kind: string(a.Kind), OutputTo: a.OutputTo, SetVlanID: a.SetVlanID,
				SetVlanPriority: a.SetVlanPriority, SetEthSrc: a.SetEthSrc, SetEthDst: a.SetEthDst,
				SetIPSrc: a.SetIPSrc, SetIPDst: a.SetIPDst,
			})
		}
		w.FlowRules = append(w.FlowRules, fr)
	}
	for _, v := range g.Vnfs {
		vw := vnfWire{ID: v.GraphVnfID, Name: v.Name, Template: v.Template}
		for _, p := range v.Ports {
			vw.Ports = append(vw.Ports, vnfPortWire{ID: p.GraphPortID, Name: p.Name})
		}
		w.Vnfs = append(w.Vnfs, vw)
	}
	return w
}
