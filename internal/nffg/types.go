// Package nffg defines the tagged-variant domain model for Network Function
// Forwarding Graphs: the declarative request body the orchestrator realises
// onto the data plane, and the persisted shapes GraphStore reads and writes.
package nffg

// EndpointKind is the tagged variant replacing the source's free-form
// endpoint "type" string.
type EndpointKind string

const (
	EndpointInterface EndpointKind = "interface"
	EndpointVlan       EndpointKind = "vlan"
	EndpointGreTunnel  EndpointKind = "gre-tunnel"
)

func (k EndpointKind) Valid() bool {
	switch k {
	case EndpointInterface, EndpointVlan, EndpointGreTunnel:
		return true
	default:
		return false
	}
}

// Status is the lifecycle tag a diff assigns to an entity during an update.
type Status string

const (
	StatusNew             Status = "new"
	StatusAlreadyDeployed  Status = "already_deployed"
	StatusToBeDeleted      Status = "to_be_deleted"
	StatusToBeUpdated      Status = "to_be_updated"
)

// FlowRuleType distinguishes a logical NF-FG rule from one of its physical,
// per-hop installations.
type FlowRuleType string

const (
	FlowRuleLogical  FlowRuleType = "null"
	FlowRuleExternal FlowRuleType = "external"
)

// PortInType tags what match.port_in names: a raw physical port, a symbolic
// endpoint reference, or a VNF port reference.
type PortInType string

const (
	PortInPort     PortInType = "port"
	PortInEndpoint PortInType = "endpoint"
	PortInVnf      PortInType = "vnf"
)

// ActionKind is the tagged variant replacing the source's dynamically typed
// action dictionary.
type ActionKind string

const (
	ActionOutput       ActionKind = "output"
	ActionDrop         ActionKind = "drop"
	ActionPushVlan     ActionKind = "push_vlan"
	ActionSetVlanID    ActionKind = "set_vlan_id"
	ActionPopVlan      ActionKind = "pop_vlan"
	ActionSetEthSrc    ActionKind = "set_eth_src"
	ActionSetEthDst    ActionKind = "set_eth_dst"
	ActionSetIPSrc     ActionKind = "set_ip_src"
	ActionSetIPDst     ActionKind = "set_ip_dst"
	ActionSetIPTos     ActionKind = "set_ip_tos"
	ActionSetL4SrcPort ActionKind = "set_l4_src_port"
	ActionSetL4DstPort ActionKind = "set_l4_dst_port"
	ActionSetVlanPrio  ActionKind = "set_vlan_priority"
)

// Endpoint is a named attachment point on a switch.
type Endpoint struct {
	ID       int64        // internal database id, 0 if not yet persisted
	GraphID  string       // graph_endpoint_id, the symbolic NF-FG identifier
	SessionID string
	Name     string
	Kind     EndpointKind
	Status   Status

	// Port is the resolved physical attachment; populated once the endpoint
	// is bound to a switch (always true for Interface/Vlan, true for
	// GreTunnel only after GRE setup rewrites it to Interface).
	Port *Port
}

// Switch returns the switch_id the endpoint is attached to, or "" if unbound.
func (e *Endpoint) Switch() string {
	if e.Port == nil {
		return ""
	}
	return e.Port.SwitchID
}

// Interface returns the physical/logical interface name at the port, or ""
// if unbound.
func (e *Endpoint) Interface() string {
	if e.Port == nil {
		return ""
	}
	return e.Port.InterfaceName
}

// VlanID returns the endpoint's tenant-facing VLAN, valid only when
// Kind == EndpointVlan.
func (e *Endpoint) VlanID() int {
	if e.Port == nil {
		return 0
	}
	return e.Port.VlanID
}

// Port is the physical binding of an Endpoint (or VnfPort) to a switch.
type Port struct {
	ID              int64
	GraphPortID     string
	SessionID       string
	SwitchID        string
	InterfaceName   string
	VlanID          int
	IPv4Address     string
	TunnelRemoteIP  string
	GreKey          string
	Status          Status
}

// EndpointResourceKind tags what EndpointResource joins an endpoint to.
type EndpointResourceKind string

const (
	ResourcePort      EndpointResourceKind = "port"
	ResourceFlowRule  EndpointResourceKind = "flow-rule"
)

// EndpointResource is the sole cross-reference in the model: a pure join row
// resolved by id + lookup, never a pointer cycle.
type EndpointResource struct {
	EndpointID int64
	Kind       EndpointResourceKind
	ResourceID int64
}

// Match is the 1:1 match clause of a FlowRule.
type Match struct {
	PortIn       string
	PortInType   PortInType
	EtherType    *int
	VlanID       *int
	VlanPriority *int
	SrcMAC       string
	DstMAC       string
	SrcIP        string
	DstIP        string
	Tos          *int
	SrcPort      *int
	DstPort      *int
	Protocol     *int
}

// Clone returns a deep copy so per-hop synthesis can mutate a match without
// aliasing the original request.
func (m Match) Clone() Match {
	clone := m
	if m.EtherType != nil {
		v := *m.EtherType
		clone.EtherType = &v
	}
	if m.VlanID != nil {
		v := *m.VlanID
		clone.VlanID = &v
	}
	if m.VlanPriority != nil {
		v := *m.VlanPriority
		clone.VlanPriority = &v
	}
	if m.Tos != nil {
		v := *m.Tos
		clone.Tos = &v
	}
	if m.SrcPort != nil {
		v := *m.SrcPort
		clone.SrcPort = &v
	}
	if m.DstPort != nil {
		v := *m.DstPort
		clone.DstPort = &v
	}
	if m.Protocol != nil {
		v := *m.Protocol
		clone.Protocol = &v
	}
	return clone
}

// NonVlanEqual reports whether two matches agree on every field except
// VlanID -- the predicate matchesOnSwitch and busyVlansOn are built around.
func (m Match) NonVlanEqual(other Match) bool {
	return m.PortIn == other.PortIn &&
		m.PortInType == other.PortInType &&
		intPtrEqual(m.EtherType, other.EtherType) &&
		intPtrEqual(m.VlanPriority, other.VlanPriority) &&
		m.SrcMAC == other.SrcMAC &&
		m.DstMAC == other.DstMAC &&
		m.SrcIP == other.SrcIP &&
		m.DstIP == other.DstIP &&
		intPtrEqual(m.Tos, other.Tos) &&
		intPtrEqual(m.SrcPort, other.SrcPort) &&
		intPtrEqual(m.DstPort, other.DstPort) &&
		intPtrEqual(m.Protocol, other.Protocol)
}

// Equal reports whether two matches agree on every field, including VlanID.
func (m Match) Equal(other Match) bool {
	return m.NonVlanEqual(other) && intPtrEqual(m.VlanID, other.VlanID)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Action is one element of a FlowRule's ordered action list.
type Action struct {
	Kind            ActionKind
	OutputTo        string // symbolic output reference: "endpoint:<gid>" or "vnf:<id>:<port>"
	OutputToPort    string // resolved physical port name/number, set during synthesis
	OutputToController bool
	OutputToQueue   string
	SetVlanID       int
	SetVlanPriority int
	SetEthSrc       string
	SetEthDst       string
	SetIPSrc        string
	SetIPDst        string
	SetIPTos        int
	SetL4SrcPort    int
	SetL4DstPort    int
}

// IsOutput reports whether this action carries an output disposition
// (output-to-port, output-to-controller, or drop); the validation
// precondition "at most one output action" counts these.
func (a Action) IsOutput() bool {
	return a.Kind == ActionOutput || a.Kind == ActionDrop
}

// FlowRule is either a logical (type=null) rule from the NF-FG or one
// physical (type=external) per-hop installation it expanded into.
type FlowRule struct {
	ID             int64
	GraphFlowRuleID string // logical id shared by a rule and all its externals
	InternalID     string  // per-switch physical name, e.g. "<graphID>_0"
	SessionID      string
	SwitchID       string
	Type           FlowRuleType
	Priority       int
	Status         Status

	Match   Match
	Actions []Action
}

// HasDrop reports whether any action in the rule drops the packet.
func (f *FlowRule) HasDrop() bool {
	for _, a := range f.Actions {
		if a.Kind == ActionDrop {
			return true
		}
	}
	return false
}

// OutputAction returns the rule's single output action, if any.
func (f *FlowRule) OutputAction() (Action, bool) {
	for _, a := range f.Actions {
		if a.Kind == ActionOutput {
			return a, true
		}
	}
	return Action{}, false
}

// Vnf is a logical network function mapped to the controller application
// that implements it.
type Vnf struct {
	ID                  int64
	GraphVnfID          string
	SessionID           string
	Name                string
	Template            string
	FunctionalCapability string
	ApplicationName     string
	Status              Status
	Ports               []VnfPort
}

// VnfPort is a named port on a Vnf.
type VnfPort struct {
	ID         int64
	GraphPortID string
	VnfID      int64
	Name       string
}

// NFFG is the reconstructed logical graph returned by getGraph/loadGraph:
// type=external flow rules are never included.
type NFFG struct {
	ID        string
	Endpoints []Endpoint
	FlowRules []FlowRule
	Vnfs      []Vnf
}
