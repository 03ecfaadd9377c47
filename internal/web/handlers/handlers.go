// Package handlers exposes the project directory and the version object
// graph over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
	"github.com/benregnier/speckle-mcp-gpt/internal/propertypath"
	"github.com/benregnier/speckle-mcp-gpt/internal/speckle"
	"github.com/benregnier/speckle-mcp-gpt/internal/web/response"
)

// defaultLimit bounds directory listings when the client does not ask
// for a specific page size.
const defaultLimit = 20

// Directory is the slice of the Speckle API the handlers depend on.
type Directory interface {
	ListProjects(ctx context.Context, limit int) ([]speckle.Project, error)
	SearchProjects(ctx context.Context, query string, limit int) ([]speckle.Project, error)
	GetProject(ctx context.Context, projectID string, modelsLimit int) (*speckle.Project, error)
	ListVersions(ctx context.Context, projectID, modelID string, limit int) ([]speckle.Version, error)
	GetVersion(ctx context.Context, projectID, versionID string) (*speckle.Version, error)
	Objects(projectID string) graph.Fetcher
}

// The speckle client is the production Directory.
var _ Directory = (*speckle.Client)(nil)

// FetcherWrapper lets the caller layer a shared store between the
// request cache and the remote object endpoint.
type FetcherWrapper func(graph.Fetcher) graph.Fetcher

// Handler serves the HTTP API.
type Handler struct {
	directory Directory
	wrap      FetcherWrapper
	logger    *zap.Logger
}

// New creates a Handler. wrap may be nil when no shared store is
// configured.
func New(directory Directory, wrap FetcherWrapper, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		directory: directory,
		wrap:      wrap,
		logger:    logger,
	}
}

// Routes builds the router for the API surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", h.health)
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.listProjects)
		r.Get("/search", h.searchProjects)
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", h.getProject)
			r.Get("/models/{modelID}/versions", h.listVersions)
			r.Route("/versions/{versionID}", func(r chi.Router) {
				r.Get("/objects", h.getVersionObjects)
				r.Get("/query", h.queryVersionObject)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, defaultLimit)

	projects, err := h.directory.ListProjects(r.Context(), limit)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (h *Handler) searchProjects(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		response.RenderBadRequest(w, "query parameter is required")
		return
	}

	projects, err := h.directory.SearchProjects(r.Context(), query, limitParam(r, defaultLimit))
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"projects": projects,
	})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := h.directory.GetProject(r.Context(), projectID, limitParam(r, defaultLimit))
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, project)
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	modelID := chi.URLParam(r, "modelID")

	versions, err := h.directory.ListVersions(r.Context(), projectID, modelID, limitParam(r, defaultLimit))
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"model_id":   modelID,
		"versions":   versions,
	})
}

// versionObjectsResponse is the payload for the objects endpoint.
type versionObjectsResponse struct {
	VersionID string    `json:"version_id"`
	ObjectID  string    `json:"object_id"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

func (h *Handler) getVersionObjects(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	versionID := chi.URLParam(r, "versionID")

	policy := graph.PolicyNone
	if includeChildren, err := boolParam(r, "include_children"); err != nil {
		response.RenderBadRequest(w, "include_children must be true or false")
		return
	} else if includeChildren {
		policy = graph.PolicyFull
	}

	version, err := h.directory.GetVersion(r.Context(), projectID, versionID)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	resolver := graph.NewResolver(h.requestCache(projectID))
	data, err := resolver.Resolve(r.Context(), version.ReferencedObject, policy)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, versionObjectsResponse{
		VersionID: version.ID,
		ObjectID:  version.ReferencedObject,
		CreatedAt: version.CreatedAt,
		Data:      data,
	})
}

// queryResponse is the payload for the query endpoint.
type queryResponse struct {
	PropertyPath string `json:"property_path"`
	Value        any    `json:"value"`
}

func (h *Handler) queryVersionObject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	versionID := chi.URLParam(r, "versionID")

	rawPath := r.URL.Query().Get("property_path")
	if rawPath == "" {
		response.RenderBadRequest(w, "property_path parameter is required")
		return
	}

	// Parse before touching the network: a malformed path never costs a
	// fetch.
	path, err := propertypath.Parse(rawPath)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	version, err := h.directory.GetVersion(r.Context(), projectID, versionID)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	evaluator := graph.NewEvaluator(h.requestCache(projectID))
	value, err := evaluator.Evaluate(r.Context(), version.ReferencedObject, path)
	if err != nil {
		response.RenderGraphError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusOK, queryResponse{
		PropertyPath: path.String(),
		Value:        renderLeaf(value),
	})
}

// requestCache builds the per-request memoizing cache over the project's
// object fetcher, with the shared store layered in when configured.
func (h *Handler) requestCache(projectID string) *graph.RequestCache {
	fetcher := h.directory.Objects(projectID)
	if h.wrap != nil {
		fetcher = h.wrap(fetcher)
	}
	return graph.NewRequestCache(fetcher)
}

// renderLeaf returns scalars as-is and flattens composite values to a
// compact JSON string.
func renderLeaf(value any) any {
	if graph.IsScalar(value) {
		return value
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return value
	}
	return string(encoded)
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
