// Command domain-orchestrator boots the SDN Domain Orchestrator: it wires
// configuration, storage, the controller dialect, the realisation engine
// and the REST façade together, then serves until signalled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/controller"
	"domain-orchestrator/internal/events"
	"domain-orchestrator/internal/logger"
	"domain-orchestrator/internal/realiser"
	"domain-orchestrator/internal/resourcedescription"
	"domain-orchestrator/internal/restapi"
	"domain-orchestrator/internal/session"
	"domain-orchestrator/internal/store"
	"domain-orchestrator/internal/topology"
	"domain-orchestrator/internal/validation"
	"domain-orchestrator/internal/validation/stages"
	"domain-orchestrator/internal/vlan"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the orchestrator configuration file")
	devMode := flag.Bool("dev", false, "enable development logging")
	flag.Parse()

	if *devMode {
		logger.Init(logger.DevelopmentConfig())
	} else {
		logger.Init(logger.DefaultConfig())
	}
	defer logger.Sync()

	if err := run(*configPath); err != nil {
		logger.Error("fatal startup error", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx := context.Background()

	// 1. Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Open the graph store; an unreachable database is a boot-time
	// failure per the documented exit codes.
	graphStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer graphStore.Close()

	// 3. Construct the event bus and its publisher; nothing in this process
	// subscribes to the bus.
	bus, err := events.NewEventBus(events.DefaultEventBusOptions())
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	defer bus.Close()
	publisher := events.NewPublisher(bus, "domain-orchestrator")

	// 4. Select and wrap the controller dialect, guarding every call with
	// a circuit breaker.
	dialect, err := newControllerDialect(cfg, publisher)
	if err != nil {
		return fmt.Errorf("construct controller client: %w", err)
	}

	// 5. Derived components: topology cache, VLAN allocator, domain
	// capability document.
	topo := topology.New(dialect)
	ranges := cfg.VlanRanges()
	vlanAllocator := vlan.New(ranges, graphStore)

	rd, err := resourcedescription.New(cfg.DomainDescription.DomainDescriptionFile)
	if err != nil {
		return fmt.Errorf("load domain description: %w", err)
	}

	r := &realiser.Realiser{
		Topology:  topo,
		Vlans:     vlanAllocator,
		Client:    dialect,
		Store:     graphStore,
		Resources: rd,
		Config:    cfg,
	}

	// 6. Validation pipeline, in the order declared by §4.5.1.
	engine := validation.NewEngine(validation.EngineConfig{})
	engine.RegisterStage(stages.CapabilityStage{})
	engine.RegisterStage(stages.EndpointStage{})
	engine.RegisterStage(stages.MatchStage{})
	engine.RegisterStage(stages.ActionStage{})
	engine.RegisterStage(stages.VlanRangeStage{})

	coord := session.New(r, engine, publisher, cfg)

	// 7. REST façade.
	srv := restapi.New(restapi.DefaultConfig(), coord, topo)
	addr := fmt.Sprintf("%s:%d", cfg.DomainOrchestrator.IP, cfg.DomainOrchestrator.Port)

	logger.InfoCtx(ctx, "domain orchestrator starting",
		zap.String("addr", addr),
		zap.String("controller", string(cfg.NetworkController.ControllerName)),
		zap.Bool("detached_mode", cfg.DomainOrchestrator.DetachedMode))

	return srv.Start(addr)
}

func newControllerDialect(cfg *config.Config, publisher *events.Publisher) (controller.Client, error) {
	var inner controller.Client
	switch cfg.NetworkController.ControllerName {
	case config.ControllerONOS:
		inner = controller.NewONOS(cfg.ONOS.Endpoint, cfg.ONOS.Username, cfg.ONOS.Password)
	case config.ControllerOpenDaylight:
		inner = controller.NewOpenDaylight(cfg.OpenDaylight.Endpoint, cfg.OpenDaylight.Username, cfg.OpenDaylight.Password)
	default:
		return nil, fmt.Errorf("unknown network_controller.controller_name %q", cfg.NetworkController.ControllerName)
	}
	return controller.NewResilient(string(cfg.NetworkController.ControllerName), inner, controller.DefaultCircuitBreakerSettings(), publisher), nil
}
