package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/checkdag/checkdag/pkg/host"
	"github.com/checkdag/checkdag/pkg/model"
	"github.com/checkdag/checkdag/pkg/provider"
	"github.com/checkdag/checkdag/pkg/provider/builtin"
)

func testHost(t *testing.T) *host.Host {
	t.Helper()
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(builtin.NoopProvider{}))

	cfg := model.WorkflowConfig{
		Version: "1",
		Checks: map[string]model.CheckDefinition{
			"c": {ID: "c", Type: "noop", On: []string{"manual"}},
		},
	}
	h, err := host.New(cfg, reg)
	require.NoError(t, err)
	return h
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(testHost(t), zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RunEndpointExecutesAndReturnsGroupedResults(t *testing.T) {
	srv := httptest.NewServer(NewServer(testHost(t), zerolog.Nop()))
	defer srv.Close()

	body, err := json.Marshal(runRequest{PR: &model.PRInfo{Number: 1}})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res host.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Contains(t, res.Results, "c")
}

func TestServer_EventsEndpointStreamsCheckLifecycle(t *testing.T) {
	h := testHost(t)
	srv := httptest.NewServer(NewServer(h, zerolog.Nop()))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		body, _ := json.Marshal(runRequest{PR: &model.PRInfo{Number: 1}})
		http.Post(srv.URL+"/api/v1/runs", "application/json", bytes.NewReader(body))
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "Topic")
}
