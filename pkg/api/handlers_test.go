package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
)

func newTestServer(t *testing.T, cfg *config.ServerConfig) (*server, corpus.Store) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	store := corpus.NewStore(log, &config.CorpusConfig{
		Enabled: true,
		Driver:  "sqlite",
		SQLite:  config.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, store.Start(context.Background()))

	t.Cleanup(func() { _ = store.Stop() })

	if cfg == nil {
		cfg = &config.ServerConfig{}
	}

	s := &server{
		log:   log.WithField("component", "api"),
		cfg:   cfg,
		store: store,
		files: newLocalFileServer(log, cfg.Roots),
	}

	return s, store
}

func seedRun(t *testing.T, store corpus.Store, runID, workload string, generatedAt time.Time) {
	t.Helper()

	require.NoError(t, store.RecordRun(context.Background(), &corpus.Run{
		RunID:       runID,
		Workload:    workload,
		Seed:        42,
		Days:        7,
		Intervals:   168,
		Format:      "text",
		GeneratedAt: generatedAt,
		IndexedAt:   time.Now().UTC(),
	}))
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	router := s.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleListRuns(t *testing.T) {
	s, store := newTestServer(t, nil)
	router := s.buildRouter()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRun(t, store, "run-old", "oltp", base)
	seedRun(t, store, "run-new", "olap", base.Add(time.Hour))

	type listResponse struct {
		Generated int64        `json:"generated"`
		Runs      []corpus.Run `json:"runs"`
	}

	t.Run("lists newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Runs, 2)
		assert.Equal(t, "run-new", resp.Runs[0].RunID)
		assert.Equal(t, "run-old", resp.Runs[1].RunID)
		assert.Positive(t, resp.Generated)
	})

	t.Run("honors limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp listResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Runs, 1)
		assert.Equal(t, "run-new", resp.Runs[0].RunID)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		for _, limit := range []string{"abc", "-1", "0"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(
				http.MethodGet, "/api/v1/runs?limit="+limit, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		}
	})
}

func TestHandleGetRun(t *testing.T) {
	s, store := newTestServer(t, nil)
	router := s.buildRouter()

	seedRun(t, store, "run-get", "mixed", time.Now().UTC())

	t.Run("returns run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/v1/runs/run-get", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var run corpus.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, "run-get", run.RunID)
		assert.Equal(t, "mixed", run.Workload)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/v1/runs/nope", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "run not found")
	})
}

func TestHandleListWorkloads(t *testing.T) {
	s, store := newTestServer(t, nil)
	router := s.buildRouter()

	now := time.Now().UTC()
	seedRun(t, store, "run-1", "oltp", now)
	seedRun(t, store, "run-2", "olap", now)
	seedRun(t, store, "run-3", "oltp", now)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/api/v1/workloads", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"workloads":["olap","oltp"]}`, rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	s, store := newTestServer(t, &config.ServerConfig{
		Auth: config.AuthConfig{
			Enabled: true,
			Users: []config.AuthUser{
				{Username: "analyst", PasswordHash: string(hash)},
			},
		},
	})
	router := s.buildRouter()

	seedRun(t, store, "run-auth", "oltp", time.Now().UTC())

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
		req.SetBasicAuth("analyst", "wrong")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
		req.SetBasicAuth("analyst", "s3cret")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health stays public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, &config.ServerConfig{
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 2,
		},
	})
	router := s.buildRouter()

	status := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workloads", nil)
		req.RemoteAddr = "203.0.113.7:1234"

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec.Code
	}

	// The burst equals the per-minute limit, so the first two requests
	// pass and the third is throttled.
	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusTooManyRequests, status())

	// A different client IP gets its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workloads", nil)
	req.RemoteAddr = "198.51.100.9:4321"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFileRequest(t *testing.T) {
	root := t.TempDir()
	runDir := filepath.Join(root, "runA")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(runDir, "sys.query_store_query.txt"),
		[]byte("1;2;3\n"), 0o644,
	))

	s, _ := newTestServer(t, &config.ServerConfig{Roots: []string{root}})
	router := s.buildRouter()

	t.Run("serves dataset file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/files/runA/sys.query_store_query.txt", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1;2;3\n", rec.Body.String())
	})

	t.Run("missing file is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/files/runA/missing.txt", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "file not found")
	})
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.1:5000",
			want:       "192.0.2.1",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.50",
			want:       "203.0.113.50",
		},
		{
			name:       "x-forwarded-for chain",
			remoteAddr: "10.0.0.1:80",
			forwarded:  "203.0.113.50, 10.0.0.2",
			want:       "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr

			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			assert.Equal(t, tt.want, extractIP(req))
		})
	}
}
