// Package config loads the orchestrator's configuration file into an
// explicit, immutable value threaded through every component at
// construction time. There is no mutable global: callers that need a
// *Config pass it down, and tests build one by hand.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ControllerName selects which ControllerClient dialect to construct.
type ControllerName string

const (
	ControllerOpenDaylight ControllerName = "opendaylight"
	ControllerONOS         ControllerName = "onos"
)

func (c ControllerName) Valid() bool {
	return c == ControllerOpenDaylight || c == ControllerONOS
}

// VlanRange is an inclusive [Low, High] range of allocatable VLAN ids.
type VlanRange struct {
	Low  int
	High int
}

// Contains reports whether vid falls within the range.
func (r VlanRange) Contains(vid int) bool {
	return vid >= r.Low && vid <= r.High
}

// DomainOrchestratorSection is the "[domain_orchestrator]" file section.
type DomainOrchestratorSection struct {
	IP            string `yaml:"ip"`
	Port          int    `yaml:"port"`
	DetachedMode  bool   `yaml:"detached_mode"`
}

// VlanSection is the "[vlan]" file section.
type VlanSection struct {
	AvailableIDs string `yaml:"available_ids"`
}

// PhysicalPortsSection is the "[physical_ports]" file section.
type PhysicalPortsSection struct {
	Ports       map[string]string `yaml:"ports"`
	GreBridge   string            `yaml:"gre_bridge"`
	GreBridgeID string            `yaml:"gre_bridge_id"`
}

// NetworkControllerSection is the "[network_controller]" file section.
type NetworkControllerSection struct {
	ControllerName ControllerName `yaml:"controller_name"`
}

// ControllerEndpointSection covers both "[opendaylight]" and "[onos]".
type ControllerEndpointSection struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Version  string `yaml:"version"`
}

// OVSDBSection is the "[ovsdb]" file section.
type OVSDBSection struct {
	Support  bool   `yaml:"ovsdb_support"`
	NodeIP   string `yaml:"ovsdb_node_ip"`
	NodePort int    `yaml:"ovsdb_node_port"`
	IP       string `yaml:"ovsdb_ip"`
}

// NFConfigurationSection is the "[nf_configuration]" file section.
type NFConfigurationSection struct {
	InitialConfiguration bool   `yaml:"initial_configuration"`
	ConfigServiceEndpoint string `yaml:"config_service_endpoint"`
}

// DomainDescriptionSection is the "[domain_description]" file section.
type DomainDescriptionSection struct {
	DomainDescriptionFile        string `yaml:"domain_description_file"`
	DomainDescriptionDynamicFile string `yaml:"domain_description_dynamic_file"`
	CapabilitiesAppName          string `yaml:"capabilities_app_name"`
	DiscoverCapabilities         bool   `yaml:"discover_capabilities"`
}

// OtherOptionsSection is the "[other_options]" file section.
type OtherOptionsSection struct {
	ConsolePrint      bool `yaml:"console_print"`
	UseInterfacesNames bool `yaml:"use_interfaces_names"`
	Jolnet            bool `yaml:"jolnet"`
}

// Config is the fully parsed, immutable configuration. Construct with Load;
// never mutate a *Config after construction -- components that need
// derived state (e.g. parsed VLAN ranges) compute it once here.
type Config struct {
	DomainOrchestrator DomainOrchestratorSection `yaml:"domain_orchestrator"`
	Vlan               VlanSection               `yaml:"vlan"`
	PhysicalPorts      PhysicalPortsSection       `yaml:"physical_ports"`
	NetworkController  NetworkControllerSection   `yaml:"network_controller"`
	OpenDaylight       ControllerEndpointSection  `yaml:"opendaylight"`
	ONOS               ControllerEndpointSection  `yaml:"onos"`
	OVSDB              OVSDBSection               `yaml:"ovsdb"`
	NFConfiguration    NFConfigurationSection     `yaml:"nf_configuration"`
	DomainDescription  DomainDescriptionSection   `yaml:"domain_description"`
	OtherOptions       OtherOptionsSection        `yaml:"other_options"`

	// DatabasePath is the sqlite file backing GraphStore. Not part of the
	// upstream config schema; added so Load callers can point tests at a
	// temp file without writing a YAML fixture.
	DatabasePath string `yaml:"database_path"`

	// ForbiddenEndpointFields lists NF-FG endpoint field names rejected by
	// the UselessInfo validation precondition.
	ForbiddenEndpointFields []string `yaml:"forbidden_endpoint_fields"`

	// vlanRanges is the parsed form of Vlan.AvailableIDs, computed once by
	// finish (called from Load) and reused by VlanAllocator on every call.
	vlanRanges []VlanRange
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finish validates required fields and precomputes derived state.
func (c *Config) finish() error {
	if !c.NetworkController.ControllerName.Valid() {
		return fmt.Errorf("network_controller.controller_name must be %q or %q, got %q",
			ControllerOpenDaylight, ControllerONOS, c.NetworkController.ControllerName)
	}
	ranges, err := ParseVlanRanges(c.Vlan.AvailableIDs)
	if err != nil {
		return fmt.Errorf("vlan.available_ids: %w", err)
	}
	c.vlanRanges = ranges
	return nil
}

// VlanRanges returns the parsed, sorted allowed VLAN ranges.
func (c *Config) VlanRanges() []VlanRange {
	return c.vlanRanges
}

// ParseVlanRanges parses a string such as "280-289,62,737,90-95" into a
// sorted list of ranges. A single value "62" becomes VlanRange{62, 62}.
// Swapped bounds ("95-90") are silently dropped, matching the documented
// tolerance of the original implementation.
func ParseVlanRanges(spec string) ([]VlanRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var ranges []VlanRange
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.IndexByte(part, '-'); idx >= 0 {
			loStr := strings.TrimSpace(part[:idx])
			hiStr := strings.TrimSpace(part[idx+1:])
			lo, err := strconv.Atoi(loStr)
			if err != nil {
				return nil, fmt.Errorf("invalid range bound %q in %q", loStr, part)
			}
			hi, err := strconv.Atoi(hiStr)
			if err != nil {
				return nil, fmt.Errorf("invalid range bound %q in %q", hiStr, part)
			}
			if lo > hi {
				// swapped bounds are tolerated by silent drop.
				continue
			}
			ranges = append(ranges, VlanRange{Low: lo, High: hi})
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid vlan id %q", part)
		}
		ranges = append(ranges, VlanRange{Low: v, High: v})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Low < ranges[j].Low })
	return ranges, nil
}
