package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
	"github.com/benregnier/speckle-mcp-gpt/internal/speckle"
)

// stubDirectory serves a fixed project with one version whose root
// object references a child object.
type stubDirectory struct {
	projects map[string]*speckle.Project
	versions map[string]*speckle.Version
	objects  map[string]map[string]any
	fetched  map[string]int
}

func newStubDirectory() *stubDirectory {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return &stubDirectory{
		projects: map[string]*speckle.Project{
			"p1": {
				ID:        "p1",
				Name:      "Office Tower",
				CreatedAt: created,
				Models:    []speckle.ModelSummary{{ID: "m1", Name: "structure"}},
			},
		},
		versions: map[string]*speckle.Version{
			"v1": {
				ID:               "v1",
				CreatedAt:        created,
				ReferencedObject: "root",
			},
		},
		objects: map[string]map[string]any{
			"root": {
				"height": 42.5,
				"levels": []any{
					map[string]any{"speckle_type": "reference", "referencedId": "child"},
				},
			},
			"child": {
				"name": "Level 1",
			},
		},
		fetched: map[string]int{},
	}
}

func (d *stubDirectory) ListProjects(_ context.Context, limit int) ([]speckle.Project, error) {
	return []speckle.Project{*d.projects["p1"]}, nil
}

func (d *stubDirectory) SearchProjects(_ context.Context, query string, limit int) ([]speckle.Project, error) {
	if query == "office" {
		return []speckle.Project{*d.projects["p1"]}, nil
	}
	return nil, nil
}

func (d *stubDirectory) GetProject(_ context.Context, projectID string, modelsLimit int) (*speckle.Project, error) {
	p, ok := d.projects[projectID]
	if !ok {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: "project " + projectID + " not found"}
	}
	return p, nil
}

func (d *stubDirectory) ListVersions(_ context.Context, projectID, modelID string, limit int) ([]speckle.Version, error) {
	return []speckle.Version{*d.versions["v1"]}, nil
}

func (d *stubDirectory) GetVersion(_ context.Context, projectID, versionID string) (*speckle.Version, error) {
	v, ok := d.versions[versionID]
	if !ok {
		return nil, &graph.Error{Kind: graph.KindNotFound, Message: "version " + versionID + " not found"}
	}
	return v, nil
}

func (d *stubDirectory) Objects(projectID string) graph.Fetcher {
	return graph.FetcherFunc(func(_ context.Context, objectID string) (*graph.Object, error) {
		d.fetched[objectID]++
		data, ok := d.objects[objectID]
		if !ok {
			return nil, graph.NewNotFound(objectID)
		}
		return &graph.Object{ID: objectID, Data: data}, nil
	})
}

func serve(t *testing.T, dir Directory, target string) *httptest.ResponseRecorder {
	t.Helper()
	handler := New(dir, nil, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListProjects(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	projects := body["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, "Office Tower", projects[0].(map[string]any)["name"])
}

func TestSearchProjects(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/search?query=office")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "office", body["query"])
	assert.Len(t, body["projects"].([]any), 1)
}

func TestSearchProjects_RequiresQuery(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProject_NotFound(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "NotFound", body["code"])
}

func TestListVersions(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/models/m1/versions")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "p1", body["project_id"])
	assert.Equal(t, "m1", body["model_id"])
	assert.Len(t, body["versions"].([]any), 1)
}

func TestGetVersionObjects_RootOnly(t *testing.T) {
	dir := newStubDirectory()
	rec := serve(t, dir, "/projects/p1/versions/v1/objects")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "v1", body["version_id"])
	assert.Equal(t, "root", body["object_id"])

	data := body["data"].(map[string]any)
	levels := data["levels"].([]any)
	marker := levels[0].(map[string]any)
	assert.Equal(t, "child", marker["referencedId"], "references stay unresolved without include_children")
	assert.Equal(t, 0, dir.fetched["child"])
}

func TestGetVersionObjects_IncludeChildren(t *testing.T) {
	dir := newStubDirectory()
	rec := serve(t, dir, "/projects/p1/versions/v1/objects?include_children=true")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	levels := data["levels"].([]any)
	child := levels[0].(map[string]any)
	assert.Equal(t, "Level 1", child["name"])
	assert.Equal(t, 1, dir.fetched["child"])
}

func TestGetVersionObjects_BadIncludeChildren(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/versions/v1/objects?include_children=yep")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_ScalarLeaf(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/versions/v1/query?property_path=levels[0].name")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "levels[0].name", body["property_path"])
	assert.Equal(t, "Level 1", body["value"])
}

func TestQuery_CompositeLeafIsStringified(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/versions/v1/query?property_path=levels[0]")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	leaf, ok := body["value"].(string)
	require.True(t, ok, "composite leaves are rendered as JSON strings")
	assert.JSONEq(t, `{"name":"Level 1"}`, leaf)
}

func TestQuery_InvalidPathCostsNoFetch(t *testing.T) {
	dir := newStubDirectory()
	rec := serve(t, dir, "/projects/p1/versions/v1/query?property_path=levels[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "InvalidPath", body["code"])
	assert.Empty(t, dir.fetched)
}

func TestQuery_MissingProperty(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/versions/v1/query?property_path=nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "PropertyNotFound", body["code"])
}

func TestQuery_RequiresPropertyPath(t *testing.T) {
	rec := serve(t, newStubDirectory(), "/projects/p1/versions/v1/query")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_WrapperIsApplied(t *testing.T) {
	dir := newStubDirectory()
	wrapped := 0
	wrap := func(next graph.Fetcher) graph.Fetcher {
		return graph.FetcherFunc(func(ctx context.Context, objectID string) (*graph.Object, error) {
			wrapped++
			return next.Fetch(ctx, objectID)
		})
	}

	handler := New(dir, wrap, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/p1/versions/v1/query?property_path=height", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, wrapped)
}
