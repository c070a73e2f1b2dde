package controller

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// EventPublisher is the subset of events.Publisher the resilient client
// needs, kept as an interface so tests can substitute a recorder.
type EventPublisher interface {
	PublishControllerReachabilityChanged(ctx context.Context, controllerName string, reachable bool, reason string) error
}

// CircuitBreakerSettings configures the breaker guarding controller calls.
type CircuitBreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ConsecutiveFailures trips the breaker after this many failures in a row.
	ConsecutiveFailures uint32
}

// DefaultCircuitBreakerSettings mirrors the router fallback chain's
// defaults: a handful of consecutive failures trips the breaker, then a
// cool-down before probing again.
func DefaultCircuitBreakerSettings() CircuitBreakerSettings {
	return CircuitBreakerSettings{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Resilient wraps a dialect Client with a gobreaker circuit breaker,
// publishing a ControllerReachabilityChangedEvent on every trip/recovery so
// operators see the same signal the router fallback chain emits for
// protocol failover.
type Resilient struct {
	name      string
	inner     Client
	breaker   *gobreaker.CircuitBreaker[any]
	publisher EventPublisher
}

// NewResilient wraps inner with a circuit breaker named after the
// controller dialect.
func NewResilient(name string, inner Client, settings CircuitBreakerSettings, publisher EventPublisher) *Resilient {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
	}
	r := &Resilient{name: name, inner: inner, publisher: publisher}
	st.OnStateChange = func(_ string, from, to gobreaker.State) {
		if r.publisher == nil {
			return
		}
		reachable := to == gobreaker.StateClosed
		reason := "breaker " + from.String() + " -> " + to.String()
		_ = r.publisher.PublishControllerReachabilityChanged(context.Background(), name, reachable, reason)
	}
	r.breaker = gobreaker.NewCircuitBreaker[any](st)
	return r
}

func call[T any](r *Resilient, fn func() (T, error)) (T, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func (r *Resilient) ListDevices(ctx context.Context) ([]Device, error) {
	return call(r, func() ([]Device, error) { return r.inner.ListDevices(ctx) })
}

func (r *Resilient) ListLinks(ctx context.Context) ([]Link, error) {
	return call(r, func() ([]Link, error) { return r.inner.ListLinks(ctx) })
}

func (r *Resilient) ListDevicePorts(ctx context.Context, switchID string) ([]Port, error) {
	return call(r, func() ([]Port, error) { return r.inner.ListDevicePorts(ctx, switchID) })
}

func (r *Resilient) CreateFlow(ctx context.Context, switchID string, flow FlowSpec) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.CreateFlow(ctx, switchID, flow) })
	return err
}

func (r *Resilient) DeleteFlow(ctx context.Context, switchID, flowName string) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.DeleteFlow(ctx, switchID, flowName) })
	return err
}

func (r *Resilient) ActivateApp(ctx context.Context, appName string) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.ActivateApp(ctx, appName) })
	return err
}

func (r *Resilient) DeactivateApp(ctx context.Context, appName string) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.DeactivateApp(ctx, appName) })
	return err
}

func (r *Resilient) IsAppActive(ctx context.Context, appName string) (bool, error) {
	return call(r, func() (bool, error) { return r.inner.IsAppActive(ctx, appName) })
}

func (r *Resilient) PushAppConfiguration(ctx context.Context, appName string, config map[string]interface{}) error {
	_, err := call(r, func() (struct{}, error) {
		return struct{}{}, r.inner.PushAppConfiguration(ctx, appName, config)
	})
	return err
}

func (r *Resilient) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	return call(r, func() (string, error) {
		return r.inner.AddGreTunnel(ctx, bridge, portName, localIP, remoteIP, greKey)
	})
}

func (r *Resilient) DeleteGreTunnel(ctx context.Context, bridge, portName string) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.DeleteGreTunnel(ctx, bridge, portName) })
	return err
}

func (r *Resilient) AddPort(ctx context.Context, bridge, portName string) error {
	_, err := call(r, func() (struct{}, error) { return struct{}{}, r.inner.AddPort(ctx, bridge, portName) })
	return err
}

var _ Client = (*Resilient)(nil)
