// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
	ws "github.com/tomtom215/rollcall/internal/websocket"
)

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

var (
	adminUser   = models.Principal{ID: "admin-1", Role: models.RoleAdmin}
	teacherUser = models.Principal{ID: "t1", Role: models.RoleTeacher}
	otherUser   = models.Principal{ID: "t2", Role: models.RoleTeacher}
	studentUser = models.Principal{ID: "s1", Role: models.RoleStudent}
	student2    = models.Principal{ID: "s2", Role: models.RoleStudent}
)

// hubPublisher hands service events straight to the hub.
type hubPublisher struct{ hub *ws.Hub }

func (p hubPublisher) Publish(_ context.Context, e *events.Event) error {
	p.hub.Publish(e)
	return nil
}

type testServer struct {
	srv         *httptest.Server
	jwt         *auth.JWTManager
	ledger      *ledger.Memory
	hub         *ws.Hub
	revocations *auth.MemoryRevocationStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	mem := ledger.NewMemory()
	svc, err := attendance.NewService(attendance.Config{}, attendance.Deps{
		Store:  st,
		Ledger: mem,
		Audit:  audit.NewRecorder(audit.NewMemoryLog()),
		Events: hubPublisher{hub: hub},
		Clock:  func() time.Time { return sessionStart.Add(5 * time.Minute) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	sec := &config.SecurityConfig{
		JWTSecret:         testSecret,
		TokenTTL:          time.Hour,
		RateLimitDisabled: true,
		CORSOrigins:       []string{"http://school.test"},
	}
	jwtManager, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	revocations := auth.NewMemoryRevocationStore()
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfigFromSecurity(sec))
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	handler := NewHandler(HandlerDeps{
		Service:     svc,
		Revocations: revocations,
		Hub:         hub,
		Store:       st,
		CORSOrigins: sec.CORSOrigins,
	})
	router := NewRouter(handler, auth.NewMiddleware(jwtManager, revocations), enforcer,
		NewChiMiddleware(ChiMiddlewareConfigFromSecurity(sec)))

	srv := httptest.NewServer(router.SetupChi())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, jwt: jwtManager, ledger: mem, hub: hub, revocations: revocations}
}

func (ts *testServer) token(t *testing.T, p models.Principal) string {
	t.Helper()
	token, _, err := ts.jwt.GenerateToken(p)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

type apiResult struct {
	status int
	body   models.APIResponse
	raw    []byte
}

// do sends a request as token (empty for anonymous) and decodes the envelope.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) apiResult {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	res := apiResult{status: resp.StatusCode, raw: buf.Bytes()}
	if len(res.raw) > 0 && res.raw[0] == '{' {
		if err := json.Unmarshal(res.raw, &res.body); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, res.raw)
		}
	}
	return res
}

// decodeData re-decodes the envelope's data field into dst.
func decodeData(t *testing.T, res apiResult, dst interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(res.raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func expectStatus(t *testing.T, res apiResult, status int, code string) {
	t.Helper()
	if res.status != status {
		t.Fatalf("status = %d, want %d (body %s)", res.status, status, res.raw)
	}
	if code == "" {
		return
	}
	if res.body.Error == nil || res.body.Error.Code != code {
		t.Fatalf("error code = %+v, want %s", res.body.Error, code)
	}
}

// seedSession creates class c1 (teacher t1, students s1 s2 s3) and starts a session.
func (ts *testServer) seedSession(t *testing.T, start time.Time) *models.Session {
	t.Helper()
	res := ts.do(t, http.MethodPut, "/api/v1/classes/c1", ts.token(t, adminUser), PutClassRequest{
		Name:      "Algebra",
		TeacherID: "t1",
		Students:  []string{"s1", "s2", "s3"},
	})
	expectStatus(t, res, http.StatusOK, "")

	res = ts.do(t, http.MethodPost, "/api/v1/sessions", ts.token(t, teacherUser), StartSessionRequest{
		ClassID:   "c1",
		Name:      "Week 1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	expectStatus(t, res, http.StatusCreated, "")

	var sess models.Session
	decodeData(t, res, &sess)
	return &sess
}
