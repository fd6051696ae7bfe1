package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"net/http"
	"testing"

	"triagekit/internal/domain"
	"triagekit/internal/enrich"
	"triagekit/internal/predict"
	"triagekit/internal/store"
)

type testServer struct {
	URL    string
	Store  store.Store
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := store.Open(store.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := store.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.Store{DB: conn}
	handler, err := New(Config{
		Store:     st,
		Enricher:  enrich.New(nil, rand.New(rand.NewSource(1))),
		Predictor: predict.New(nil),
		BasePath:  "/v0",
		Auth:      auth,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Store:  st,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func seedIncidents(t *testing.T, srv *testServer) {
	t.Helper()
	batch := []domain.Incident{
		{ID: "ESC-2025-000001", Title: "Exchange mailbox latency", Description: "mail flow delayed across tenants"},
		{ID: "ESC-2025-000002", Title: "Exchange mailbox latency spike", Description: "mail flow delayed again"},
		{ID: "ESC-2025-000003", Title: "Kubernetes pod evictions", Description: "node pressure in cluster"},
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/enrich", map[string]any{
		"incidents": batch,
		"persist":   true,
		"source":    "test",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("seed enrich status %d: %s", res.StatusCode, string(data))
	}
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestEnrichAndList(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedIncidents(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents?search=mailbox", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var list IncidentListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("total = %d: %s", list.Total, string(data))
	}
	for _, inc := range list.Items {
		if inc.AssignedTo == "" || inc.Priority == "" || inc.Category == "" {
			t.Fatalf("incident not enriched: %+v", inc)
		}
	}
}

func TestEnrichRejectsEmptyBatch(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/enrich", map[string]any{
		"incidents": []domain.Incident{},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestGetIncident(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedIncidents(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents/ESC-2025-000001", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var inc domain.Incident
	if err := json.Unmarshal(data, &inc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if inc.ID != "ESC-2025-000001" {
		t.Fatalf("got %+v", inc)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents/ESC-2025-999999", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
}

func TestSimilarIncidents(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedIncidents(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents/ESC-2025-000001/similar", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var sim SimilarResponse
	if err := json.Unmarshal(data, &sim); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(sim.Items) == 0 {
		t.Fatal("expected at least one similar incident")
	}
	if sim.Items[0].Incident.ID != "ESC-2025-000002" {
		t.Fatalf("best match = %s", sim.Items[0].Incident.ID)
	}
	for _, m := range sim.Items {
		if m.Incident.ID == "ESC-2025-000003" {
			t.Fatal("unrelated incident returned")
		}
	}
}

func TestPredictEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/predict", map[string]any{
		"title":       "Teams chat broken",
		"description": "messages not delivered",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var p domain.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Team != "Teams" || p.Method != "heuristic_fallback" {
		t.Fatalf("got %+v", p)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/predict", map[string]any{}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedIncidents(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/stats", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("total = %d", stats.Total)
	}
	if stats.AvgConfidence <= 0 {
		t.Fatalf("avgConfidence = %v", stats.AvgConfidence)
	}
}

func TestRunsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedIncidents(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/runs", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var runs RunListResponse
	if err := json.Unmarshal(data, &runs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(runs.Items) != 1 || runs.Items[0].Source != "test" || runs.Items[0].Enriched != 3 {
		t.Fatalf("runs = %+v", runs.Items)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "test-secret"})
	defer cleanup()

	// Health stays open.
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/incidents", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}
