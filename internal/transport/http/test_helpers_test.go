package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

type testEnv struct {
	server *httptest.Server
	store  store.Store
	auth   *auth.Service
	hub    *core.Hub
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(st store.Store, jwtSecret string) *auth.Service {
	return auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	})
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(st, "test-secret")
	logger := zerolog.Nop()
	hub := core.NewHub(st, &logger)

	cfg := config.Default()
	cfg.Addr = ":0"
	for _, m := range mutate {
		m(&cfg)
	}

	server := NewServer(hub, authService, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		hub.Shutdown()
		ts.Close()
	})

	return &testEnv{server: ts, store: st, auth: authService, hub: hub}
}

// createUser registers a user and returns it with a valid token.
func (e *testEnv) createUser(t *testing.T, name string) (*store.User, string) {
	t.Helper()

	user, err := e.auth.CreateUser(context.Background(), name, "", "password123")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	token, err := e.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (e *testEnv) wsURL(token string) string {
	u := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// frame is an outbound envelope with its data left raw for the caller to decode.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readUntil reads frames until one matches event (or an error frame when
// event is "error") and decodes its data into out.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, out any) frame {
	t.Helper()

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if event == proto.OutboundTypeError && f.Type == proto.OutboundTypeError {
			return f
		}
		if f.Type == proto.OutboundTypeEvent && f.Event == event {
			if out != nil {
				if err := json.Unmarshal(f.Data, out); err != nil {
					t.Fatalf("decode %s: %v", event, err)
				}
			}
			return f
		}
	}
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}
