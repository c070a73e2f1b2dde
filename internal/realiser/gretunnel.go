package realiser

import (
	"context"

	"domain-orchestrator/internal/apperrors"
	"domain-orchestrator/internal/nffg"
	"domain-orchestrator/internal/profile"
)

// setUpGreTunnels implements §4.5.3: every gre-tunnel endpoint is bridged
// onto the domain's configured GRE bridge and rewritten in-memory to an
// interface endpoint bound to the returned bridge port, so the rest of the
// realiser's routing treats it uniformly with a plain interface attachment.
func (r *Realiser) setUpGreTunnels(ctx context.Context, p *profile.Graph) error {
	for _, ep := range p.GreTunnelEndpoints() {
		if ep.Port == nil {
			return apperrors.GraphError("gre-tunnel endpoint " + ep.GraphID + " has no port")
		}
		bridgePort := ep.Port.InterfaceName
		if !r.Config.DomainOrchestrator.DetachedMode {
			var err error
			bridgePort, err = r.Client.AddGreTunnel(ctx,
				r.Config.PhysicalPorts.GreBridge,
				ep.Port.InterfaceName,
				ep.Port.IPv4Address,
				ep.Port.TunnelRemoteIP,
				ep.Port.GreKey)
			if err != nil {
				return apperrors.ControllerError("addGreTunnel", err)
			}
		}
		p.RewriteEndpoint(ep.GraphID, func(rewrite *nffg.Endpoint) {
			rewrite.Kind = nffg.EndpointInterface
			rewrite.Port.SwitchID = r.Config.PhysicalPorts.GreBridge
			rewrite.Port.InterfaceName = bridgePort
		})
	}
	return nil
}
