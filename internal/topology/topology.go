// Package topology provides a cached view over the controller's device,
// link and port inventory, and the deterministic shortest-path computation
// the Realiser routes cross-switch flows over.
package topology

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"domain-orchestrator/internal/cache"
	"domain-orchestrator/internal/controller"
)

// snapshotTTL bounds how long a cached topology snapshot is trusted before
// the next realisation attempt forces a refresh, per the component design's
// "cache must be invalidated ... or at least on each realisation attempt".
const snapshotTTL = 30 * time.Second

// Provider caches devices/links/ports from a controller.Client and answers
// the queries the Realiser needs to route a cross-switch flow.
type Provider struct {
	client controller.Client

	mu        sync.RWMutex
	devices   map[string]controller.Device
	ports     map[string][]controller.Port   // switchID -> ports
	linksOut  map[string][]controller.Link   // switchID -> links leaving it
	snapshotAt time.Time

	portNumberCache *cache.MemoryCache[portKey, string]
}

type portKey struct {
	switchID string
	iface    string
}

// New constructs a Provider backed by client.
func New(client controller.Client) *Provider {
	return &Provider{
		client:          client,
		devices:         make(map[string]controller.Device),
		ports:           make(map[string][]controller.Port),
		linksOut:        make(map[string][]controller.Link),
		portNumberCache: cache.NewMemoryCache[portKey, string](snapshotTTL),
	}
}

// Invalidate forces the next query to refresh from the controller. Call on
// any ControllerClient device/link change notification.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.snapshotAt = time.Time{}
	p.mu.Unlock()
	p.portNumberCache.Clear()
}

func (p *Provider) refreshIfStale(ctx context.Context) error {
	p.mu.RLock()
	stale := time.Since(p.snapshotAt) > snapshotTTL
	p.mu.RUnlock()
	if !stale {
		return nil
	}
	return p.refresh(ctx)
}

func (p *Provider) refresh(ctx context.Context) error {
	devices, err := p.client.ListDevices(ctx)
	if err != nil {
		return err
	}
	links, err := p.client.ListLinks(ctx)
	if err != nil {
		return err
	}

	deviceMap := make(map[string]controller.Device, len(devices))
	portMap := make(map[string][]controller.Port, len(devices))
	linkMap := make(map[string][]controller.Link, len(devices))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range devices {
		d := d
		mu.Lock()
		deviceMap[d.SwitchID] = d
		mu.Unlock()
		g.Go(func() error {
			ports, err := p.client.ListDevicePorts(gctx, d.SwitchID)
			if err != nil {
				return err
			}
			mu.Lock()
			portMap[d.SwitchID] = ports
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, l := range links {
		linkMap[l.SrcSwitch] = append(linkMap[l.SrcSwitch], l)
	}

	p.mu.Lock()
	p.devices = deviceMap
	p.ports = portMap
	p.linksOut = linkMap
	p.snapshotAt = time.Now()
	p.mu.Unlock()
	return nil
}

// Snapshot returns the current device/link inventory, refreshing it first
// if the cached copy has gone stale. Used by the /topology façade endpoint.
func (p *Provider) Snapshot(ctx context.Context) ([]controller.Device, []controller.Link, error) {
	if err := p.refreshIfStale(ctx); err != nil {
		return nil, nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	devices := make([]controller.Device, 0, len(p.devices))
	for _, d := range p.devices {
		devices = append(devices, d)
	}
	var links []controller.Link
	for _, ls := range p.linksOut {
		links = append(links, ls...)
	}
	return devices, links, nil
}

// PortNameOf returns the controller-specific port number for the human
// interface name on switchID, or "" if not found.
func (p *Provider) PortNameOf(ctx context.Context, switchID, interfaceName string) (string, error) {
	if err := p.refreshIfStale(ctx); err != nil {
		return "", err
	}
	key := portKey{switchID, interfaceName}
	if cached, ok := p.portNumberCache.Get(key); ok {
		return cached, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, port := range p.ports[switchID] {
		if port.Name == interfaceName || port.Number == interfaceName {
			p.portNumberCache.Set(key, port.Number)
			return port.Number, nil
		}
	}
	return "", nil
}

// SwitchPortOut returns the port on hopA that faces hopB, or "" if no link.
func (p *Provider) SwitchPortOut(ctx context.Context, hopA, hopB string) (string, error) {
	if err := p.refreshIfStale(ctx); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range p.linksOut[hopA] {
		if l.DstSwitch == hopB {
			return l.SrcPort, nil
		}
	}
	return "", nil
}

// SwitchPortIn returns the port on hopB that faces hopA.
func (p *Provider) SwitchPortIn(ctx context.Context, hopB, hopA string) (string, error) {
	if err := p.refreshIfStale(ctx); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range p.linksOut[hopA] {
		if l.DstSwitch == hopB {
			return l.DstPort, nil
		}
	}
	return "", nil
}

// ShortestPath returns an ordered sequence of switch ids from src to dst
// using unweighted BFS; ties are broken by ascending switch-id order among
// neighbours so the result is deterministic across runs against the same
// snapshot. Returns nil if unreachable.
func (p *Provider) ShortestPath(ctx context.Context, src, dst string) ([]string, error) {
	if err := p.refreshIfStale(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if src == dst {
		return []string{src}, nil
	}

	visited := map[string]bool{src: true}
	prev := map[string]string{}
	queue := []string{src}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbours := make([]string, 0, len(p.linksOut[current]))
		seen := map[string]bool{}
		for _, l := range p.linksOut[current] {
			if !seen[l.DstSwitch] {
				seen[l.DstSwitch] = true
				neighbours = append(neighbours, l.DstSwitch)
			}
		}
		sort.Strings(neighbours)

		for _, next := range neighbours {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = current
			if next == dst {
				return reconstructPath(prev, src, dst), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, nil
}

func reconstructPath(prev map[string]string, src, dst string) []string {
	path := []string{dst}
	cur := dst
	for cur != src {
		cur = prev[cur]
		path = append([]string{cur}, path...)
	}
	return path
}
