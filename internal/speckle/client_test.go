package speckle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
)

// fakeSpeckle is a minimal in-process Speckle server: one GraphQL
// endpoint serving a fixed directory and one REST object endpoint.
type fakeSpeckle struct {
	t       *testing.T
	objects map[string]map[string]any
	gqlData map[string]any // keyed by operation name

	objectCalls  atomic.Int32
	failuresLeft atomic.Int32 // serve this many 500s before succeeding
	lastAuth     string
}

func (s *fakeSpeckle) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		s.lastAuth = r.Header.Get("Authorization")

		var req struct {
			Query string `json:"query"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))

		for op, data := range s.gqlData {
			if strings.Contains(req.Query, op) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
				return
			}
		}
		http.Error(w, "unknown operation", http.StatusBadRequest)
	})
	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		s.objectCalls.Add(1)
		s.lastAuth = r.Header.Get("Authorization")

		if s.failuresLeft.Load() > 0 {
			s.failuresLeft.Add(-1)
			http.Error(w, "try again", http.StatusInternalServerError)
			return
		}

		// Path shape: /objects/{project}/{object}/single
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.Len(s.t, parts, 4)
		objectID := parts[2]

		data, ok := s.objects[objectID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(data)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeSpeckle) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := New(Config{
		ServerURL:    srv.URL,
		Token:        "test-token",
		FetchTimeout: 2 * time.Second,
		MaxRetries:   3,
	})
	require.NoError(t, err)
	return client
}

func TestClient_ListProjects(t *testing.T) {
	fake := &fakeSpeckle{
		t: t,
		gqlData: map[string]any{
			"query Projects": map[string]any{
				"activeUser": map[string]any{
					"projects": map[string]any{
						"totalCount": 2,
						"items": []any{
							map[string]any{
								"id": "p1", "name": "Bridge", "visibility": "PRIVATE",
								"createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-06-01T00:00:00Z",
							},
							map[string]any{
								"id": "p2", "name": "Tower", "description": "tall",
								"visibility": "PUBLIC",
								"createdAt":  "2024-02-01T00:00:00Z", "updatedAt": "2024-06-02T00:00:00Z",
							},
						},
					},
				},
			},
		},
	}
	client := newTestClient(t, fake)

	projects, err := client.ListProjects(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Bridge", projects[0].Name)
	assert.Equal(t, "private", projects[0].Visibility)
	assert.Equal(t, "tall", projects[1].Description)
	assert.Equal(t, "Bearer test-token", fake.lastAuth)
}

func TestClient_GetVersion(t *testing.T) {
	fake := &fakeSpeckle{
		t: t,
		gqlData: map[string]any{
			"query Version": map[string]any{
				"project": map[string]any{
					"version": map[string]any{
						"id":               "v1",
						"message":          "initial",
						"createdAt":        "2024-03-01T12:00:00Z",
						"referencedObject": "abc123",
						"authorUser":       map[string]any{"id": "u1", "name": "Ada"},
					},
				},
			},
		},
	}
	client := newTestClient(t, fake)

	version, err := client.GetVersion(context.Background(), "p1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", version.ReferencedObject)
	assert.Equal(t, "initial", version.Message)
	require.NotNil(t, version.Author)
	assert.Equal(t, "Ada", version.Author.Name)
}

func TestClient_GetVersionNotFound(t *testing.T) {
	fake := &fakeSpeckle{
		t: t,
		gqlData: map[string]any{
			"query Version": map[string]any{
				"project": map[string]any{"version": nil},
			},
		},
	}
	client := newTestClient(t, fake)

	_, err := client.GetVersion(context.Background(), "p1", "nope")
	require.Error(t, err)
	assert.True(t, graph.IsNotFound(err))
}

func TestObjectFetcher_Fetch(t *testing.T) {
	fake := &fakeSpeckle{
		t: t,
		objects: map[string]map[string]any{
			"abc123": {"speckle_type": "Base", "name": "root"},
		},
	}
	client := newTestClient(t, fake)
	fetcher := client.Objects("p1")

	obj, err := fetcher.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", obj.ID)
	assert.Equal(t, "root", obj.Data["name"])
}

func TestObjectFetcher_NotFoundIsNotRetried(t *testing.T) {
	fake := &fakeSpeckle{t: t, objects: map[string]map[string]any{}}
	client := newTestClient(t, fake)
	fetcher := client.Objects("p1")

	_, err := fetcher.Fetch(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, graph.IsNotFound(err))
	assert.Equal(t, int32(1), fake.objectCalls.Load())
}

func TestObjectFetcher_RetriesTransientFailures(t *testing.T) {
	fake := &fakeSpeckle{
		t:       t,
		objects: map[string]map[string]any{"abc123": {"name": "root"}},
	}
	fake.failuresLeft.Store(2)

	client := newTestClient(t, fake)
	fetcher := client.Objects("p1")

	obj, err := fetcher.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "root", obj.Data["name"])
	assert.Equal(t, int32(3), fake.objectCalls.Load(), "two failures then success")
}

func TestObjectFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeSpeckle{
		t:       t,
		objects: map[string]map[string]any{"abc123": {"name": "root"}},
	}
	fake.failuresLeft.Store(100)

	client := newTestClient(t, fake)
	fetcher := client.Objects("p1")

	_, err := fetcher.Fetch(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, graph.IsTransient(err))
	assert.Equal(t, int32(4), fake.objectCalls.Load(), "initial attempt plus three retries")
}

func TestObjectFetcher_CancellationStopsRetries(t *testing.T) {
	fake := &fakeSpeckle{
		t:       t,
		objects: map[string]map[string]any{"abc123": {"name": "root"}},
	}
	fake.failuresLeft.Store(100)

	client := newTestClient(t, fake)
	fetcher := client.Objects("p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, "abc123")
	require.Error(t, err)
	assert.Equal(t, int32(0), fake.objectCalls.Load())
}

func TestNew_RequiresServerURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestObjectFetcher_NegativeMaxRetriesMeansSingleAttempt(t *testing.T) {
	fake := &fakeSpeckle{
		t:       t,
		objects: map[string]map[string]any{"abc123": {"name": "root"}},
	}
	fake.failuresLeft.Store(100)

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := New(Config{
		ServerURL:    srv.URL,
		FetchTimeout: 2 * time.Second,
		MaxRetries:   -1,
	})
	require.NoError(t, err)

	_, err = client.Objects("p1").Fetch(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, graph.IsTransient(err))
	assert.Equal(t, int32(1), fake.objectCalls.Load())
}
