package realiser

import (
	"context"
	"strings"
	"time"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/profile"
)

// activateVnf implements §4.5.7: resolve the implementing application,
// activate it, poll until active, then push its port configuration derived
// from ProfileGraph.flowsFromVnf.
func (r *Realiser) activateVnf(ctx context.Context, userID, graphID string, p *profile.Graph, v *nffg.Vnf) error {
	appName, ok := r.Resources.ApplicationFor(v.FunctionalCapability)
	if !ok {
		return apperrors.CapabilityMissing(v.FunctionalCapability)
	}

	if r.Config.DomainOrchestrator.DetachedMode {
		return nil
	}

	if err := r.Client.ActivateApp(ctx, appName); err != nil {
		return apperrors.ControllerError("activateApp", err)
	}
	if err := r.waitUntilActive(ctx, appName); err != nil {
		return err
	}

	ports, err := r.buildAppPortsConfig(ctx, p, v, appName)
	if err != nil {
		return err
	}

	if err := r.Client.PushAppConfiguration(ctx, appName, map[string]interface{}{"ports": ports}); err != nil {
		return apperrors.ControllerError("pushAppConfiguration", err)
	}

	if r.Config.NFConfiguration.InitialConfiguration {
		nfConfig := map[string]interface{}{
			"nf-id": map[string]interface{}{
				"user-id":  userID,
				"graph-id": graphID,
				"nf-id":    v.GraphVnfID,
			},
		}
		if err := r.Client.PushAppConfiguration(ctx, appName, nfConfig); err != nil {
			return apperrors.ControllerError("pushAppConfiguration(nf-id)", err)
		}
	}
	return nil
}

func (r *Realiser) waitUntilActive(ctx context.Context, appName string) error {
	for {
		active, err := r.Client.IsAppActive(ctx, appName)
		if err != nil {
			return apperrors.ControllerError("isAppActive", err)
		}
		if active {
			return nil
		}
		select {
		case <-ctx.Done():
			return apperrors.ControllerError("isAppActive", ctx.Err())
		case <-time.After(appActivePollInterval):
		}
	}
}

// buildAppPortsConfig resolves, for each VNF port, the endpoint reachable by
// that port's output action and emits the controller-facing port entry.
func (r *Realiser) buildAppPortsConfig(ctx context.Context, p *profile.Graph, v *nffg.Vnf, appName string) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, port := range v.Ports {
		for _, f := range p.FlowsFromVnf(v.GraphVnfID) {
			if !strings.HasSuffix(f.Match.PortIn, ":"+port.GraphPortID) {
				continue
			}
			outAction, ok := f.OutputAction()
			if !ok {
				continue
			}
			epGID := strings.TrimPrefix(outAction.OutputTo, "endpoint:")
			ep, ok := p.Endpoint(epGID)
			if !ok {
				continue
			}
			deviceID := ep.Switch()
			portName, err := r.Topology.PortNameOf(ctx, deviceID, ep.Interface())
			if err != nil {
				return nil, apperrors.ControllerError("portNameOf", err)
			}
			out = append(out, map[string]interface{}{
				"port-number":    portName,
				"external-vlan":  ep.VlanID(),
				"flow-priority":  f.Priority,
				"device-id":      deviceID,
			})
		}
	}
	return out, nil
}
