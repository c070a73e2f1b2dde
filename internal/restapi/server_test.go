package restapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domain-orchestrator/internal/config"
	"domain-orchestrator/internal/controller"
	"domain-orchestrator/internal/events"
	"domain-orchestrator/internal/realiser"
	"domain-orchestrator/internal/resourcedescription"
	"domain-orchestrator/internal/restapi"
	"domain-orchestrator/internal/session"
	"domain-orchestrator/internal/store"
	"domain-orchestrator/internal/topology"
	"domain-orchestrator/internal/validation"
	"domain-orchestrator/internal/vlan"
)

type stubController struct {
	mu      sync.Mutex
	devices []controller.Device
	ports   map[string][]controller.Port
}

func (f *stubController) ListDevices(ctx context.Context) ([]controller.Device, error) { return f.devices, nil }
func (f *stubController) ListLinks(ctx context.Context) ([]controller.Link, error)      { return nil, nil }
func (f *stubController) ListDevicePorts(ctx context.Context, switchID string) ([]controller.Port, error) {
	return f.ports[switchID], nil
}
func (f *stubController) CreateFlow(ctx context.Context, switchID string, flow controller.FlowSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return nil
}
func (f *stubController) DeleteFlow(ctx context.Context, switchID, flowName string) error { return nil }
func (f *stubController) ActivateApp(ctx context.Context, appName string) error           { return nil }
func (f *stubController) DeactivateApp(ctx context.Context, appName string) error         { return nil }
func (f *stubController) IsAppActive(ctx context.Context, appName string) (bool, error)   { return true, nil }
func (f *stubController) PushAppConfiguration(ctx context.Context, appName string, cfg map[string]interface{}) error {
	return nil
}
func (f *stubController) AddGreTunnel(ctx context.Context, bridge, portName, localIP, remoteIP, greKey string) (string, error) {
	return "", nil
}
func (f *stubController) DeleteGreTunnel(ctx context.Context, bridge, portName string) error { return nil }
func (f *stubController) AddPort(ctx context.Context, bridge, portName string) error          { return nil }

func newTestServer(t *testing.T) *restapi.Server {
	t.Helper()
	ctl := &stubController{
		devices: []controller.Device{{SwitchID: "s1"}},
		ports: map[string][]controller.Port{
			"s1": {{SwitchID: "s1", Number: "1", Name: "p1"}, {SwitchID: "s1", Number: "2", Name: "p2"}},
		},
	}
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ranges, err := config.ParseVlanRanges("100-110")
	require.NoError(t, err)
	rd, err := resourcedescription.New(t.TempDir() + "/domain-description.json")
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.Vlan.AvailableIDs = "100-110"

	topo := topology.New(ctl)
	r := &realiser.Realiser{Topology: topo, Vlans: vlan.New(ranges, s), Client: ctl, Store: s, Resources: rd, Config: cfg}
	engine := validation.NewEngine(validation.EngineConfig{})
	bus, err := events.NewEventBus(events.DefaultEventBusOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	coord := session.New(r, engine, events.NewPublisher(bus, "test"), cfg)

	return restapi.New(restapi.DefaultConfig(), coord, topo)
}

func login(t *testing.T, srv *restapi.Server) string {
	t.Helper()
	body := bytes.NewBufferString(`{"user":"alice","pass":"x","tenant":"t1"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestPostGetDeleteGraph_RoundTrips(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	graphBody := []byte(`{
		"end-points": [
			{"id": "A", "type": "interface", "node_id": "s1", "interface": "p1"},
			{"id": "B", "type": "interface", "node_id": "s1", "interface": "p2"}
		],
		"flow-rules": [
			{"id": "f1", "match": {"port_in": "endpoint:A"}, "actions": [{"kind": "output", "output_to": "endpoint:B"}]}
		]
	}`)

	req := httptest.NewRequest(http.MethodPost, "/NF-FG/ignored", bytes.NewReader(graphBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var postResp struct {
		NffgUUID string `json:"nffg-uuid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &postResp))
	require.NotEmpty(t, postResp.NffgUUID)

	getReq := httptest.NewRequest(http.MethodGet, "/NF-FG/"+postResp.NffgUUID, nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getRec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/NF-FG/"+postResp.NffgUUID, nil)
	delReq.Header.Set("Authorization", "Bearer "+token)
	delRec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)
}

func TestGetGraph_WithoutBearerTokenIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/NF-FG/does-not-matter", nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusGraph_UnknownGraphIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	req := httptest.NewRequest(http.MethodGet, "/NF-FG/status/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
