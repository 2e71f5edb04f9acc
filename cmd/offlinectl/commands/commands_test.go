package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inspectra.app/offline-gateway/app/domain/auth"
	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/cmd/offlinectl/cmdutil"
)

const testSecret = "offlinectl-secret"

type fakeGateway struct {
	*httptest.Server
	mu       sync.Mutex
	messages []offlinecache.Message
	syncTags []string
	scopes   []string

	listQueries []string
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{}
	activatedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	requireAdmin := func(w http.ResponseWriter, r *http.Request) bool {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := auth.ParseAdminToken(token, []byte(testSecret)); err != nil {
			writeJSON(w, http.StatusUnauthorized, responses.ErrorResponse{Code: "unauthorized", Error: "invalid admin token"})
			return false
		}
		return true
	}

	requireScope := func(w http.ResponseWriter, r *http.Request) bool {
		cookie, err := r.Cookie(sw.ClientScopeCookie)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, responses.ErrorResponse{Code: "2c6f8e1a", Error: "missing client scope"})
			return false
		}
		g.mu.Lock()
		g.scopes = append(g.scopes, cookie.Value)
		g.mu.Unlock()
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sw/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sw.StatusResponse{
			Registration: offlinecache.RegistrationStatus{
				Active: &offlinecache.WorkerStatus{Version: "v1", State: offlinecache.WorkerStateActivated, ActivatedAt: &activatedAt},
			},
			PendingPorts: 2,
		})
	})
	mux.HandleFunc("GET /sw/caches", func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, responses.NewListResponse([]cache.CacheSummary{
			{Name: "v1-shell", Entries: 3},
			{Name: "v1-runtime", Entries: 0},
		}))
	})
	mux.HandleFunc("DELETE /sw/caches/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}
		name := r.PathValue("name")
		if name != "v1-shell" {
			writeJSON(w, http.StatusNotFound, responses.ErrorResponse{Code: "2c9e7b4f", Error: "cache not found"})
			return
		}
		writeJSON(w, http.StatusOK, sw.DeleteCacheResponse{Object: "cache.deletion", Name: name, Deleted: true})
	})
	mux.HandleFunc("POST /sw/sync", func(w http.ResponseWriter, r *http.Request) {
		if !requireScope(w, r) {
			return
		}
		var req sw.RegisterSyncRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		g.mu.Lock()
		g.syncTags = append(g.syncTags, req.Tag)
		g.mu.Unlock()
		writeJSON(w, http.StatusAccepted, responses.GeneralResponse[*backgroundsync.Registration]{
			Status: responses.ResponseCodeOk,
			Result: &backgroundsync.Registration{ID: 7, Tag: req.Tag, State: backgroundsync.StateFiring, Attempts: 1},
		})
	})
	mux.HandleFunc("GET /sw/sync", func(w http.ResponseWriter, r *http.Request) {
		if !requireScope(w, r) {
			return
		}
		g.mu.Lock()
		g.listQueries = append(g.listQueries, r.URL.RawQuery)
		g.mu.Unlock()
		writeJSON(w, http.StatusOK, responses.NewListResponse([]*backgroundsync.Registration{
			{ID: 1, Tag: "sync-inspections", State: backgroundsync.StateCompleted, Attempts: 1},
			{ID: 2, Tag: "sync-photos", State: backgroundsync.StatePending, Attempts: 2, LastError: "2 inspections failed to sync"},
		}))
	})
	mux.HandleFunc("GET /sw/sync/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !requireScope(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, responses.GeneralResponse[sw.SyncDetailResponse]{
			Status: responses.ResponseCodeOk,
			Result: sw.SyncDetailResponse{
				Registration: &backgroundsync.Registration{ID: 2, Tag: "sync-photos", State: backgroundsync.StateFailed, Attempts: 3},
				Attempts: []*backgroundsync.Attempt{
					{Number: 3, Outcome: backgroundsync.OutcomeRejected, LastChance: true, Error: "sync timed out"},
				},
			},
		})
	})
	mux.HandleFunc("POST /sw/messages", func(w http.ResponseWriter, r *http.Request) {
		var msg offlinecache.Message
		_ = json.NewDecoder(r.Body).Decode(&msg)
		g.mu.Lock()
		g.messages = append(g.messages, msg)
		g.mu.Unlock()
		writeJSON(w, http.StatusAccepted, responses.GeneralResponse[string]{Status: responses.ResponseCodeOk, Result: string(msg.Type)})
	})

	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func run(t *testing.T, g *fakeGateway, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", g.URL, "--admin-secret", testSecret}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatusTable(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "activated")
	assert.Contains(t, out, "2026-03-01T09:30:00Z")
	assert.Contains(t, out, "pending ports: 2")
}

func TestStatusJSON(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "status", "-o", "json")
	require.NoError(t, err)
	var status sw.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.NotNil(t, status.Registration.Active)
	assert.Equal(t, "v1", status.Registration.Active.Version)
}

func TestInvalidOutputFormat(t *testing.T) {
	g := newFakeGateway(t)

	_, err := run(t, g, "status", "-o", "yaml")
	assert.ErrorContains(t, err, "invalid output format")
}

func TestCachesListSignsAdminToken(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "caches", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "v1-shell")
	assert.Contains(t, out, "v1-runtime")
}

func TestCachesListRejectedWithWrongSecret(t *testing.T) {
	g := newFakeGateway(t)

	_, err := run(t, g, "caches", "list", "--admin-secret", "wrong")
	var apiErr *cmdutil.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid admin token", apiErr.Detail)
}

func TestCachesDelete(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "caches", "delete", "v1-shell")
	require.NoError(t, err)
	assert.Equal(t, "Cache v1-shell deleted\n", out)

	_, err = run(t, g, "caches", "delete", "v0-shell")
	assert.ErrorContains(t, err, "cache not found")
}

func TestSyncRegister(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "sync", "register", "sync-inspections", "--scope", "scope_alice")
	require.NoError(t, err)
	g.mu.Lock()
	assert.Equal(t, []string{"sync-inspections"}, g.syncTags)
	assert.Equal(t, []string{"scope_alice"}, g.scopes)
	g.mu.Unlock()
	assert.Contains(t, out, "firing")
}

func TestSyncRequiresScope(t *testing.T) {
	g := newFakeGateway(t)
	t.Setenv("OFFLINECTL_SCOPE", "")

	_, err := run(t, g, "sync", "register", "sync-inspections")
	assert.ErrorContains(t, err, "client scope is required")
	_, err = run(t, g, "sync", "list")
	assert.ErrorContains(t, err, "client scope is required")

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Empty(t, g.syncTags)
	assert.Empty(t, g.scopes)
}

func TestSyncList(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "sync", "list", "-o", "json", "--scope", "scope_alice")
	require.NoError(t, err)
	var regs []backgroundsync.Registration
	require.NoError(t, json.Unmarshal([]byte(out), &regs))
	require.Len(t, regs, 2)
	assert.Equal(t, "sync-photos", regs[1].Tag)

	_, err = run(t, g, "sync", "list", "--limit", "5", "--order", "desc", "--after", "9", "--scope", "scope_alice")
	require.NoError(t, err)
	g.mu.Lock()
	defer g.mu.Unlock()
	require.Len(t, g.listQueries, 2)
	assert.Equal(t, "limit=20&order=asc", g.listQueries[0])
	assert.Equal(t, "after=9&limit=5&order=desc", g.listQueries[1])
}

func TestSyncShow(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "sync", "show", "2", "--scope", "scope_alice")
	require.NoError(t, err)
	assert.Contains(t, out, "sync timed out")
	assert.Contains(t, out, "failed")

	_, err = run(t, g, "sync", "show", "two", "--scope", "scope_alice")
	assert.ErrorContains(t, err, "invalid sync id")
}

func TestSkipWaiting(t *testing.T) {
	g := newFakeGateway(t)

	out, err := run(t, g, "skip-waiting")
	require.NoError(t, err)
	assert.Equal(t, "SKIP_WAITING delivered\n", out)
	g.mu.Lock()
	defer g.mu.Unlock()
	require.Len(t, g.messages, 1)
	assert.Equal(t, offlinecache.MessageSkipWaiting, g.messages[0].Type)
}
