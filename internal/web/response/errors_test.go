package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
	"github.com/benregnier/speckle-mcp-gpt/internal/propertypath"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRenderJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderJSON(rec, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRenderError(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderError(rec, http.StatusNotFound, errors.New("version xyz not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "error", body.Error)
	assert.Equal(t, "version xyz not found", body.Message)
	assert.Equal(t, "not_found", body.Code)
}

func TestRenderGraphError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		kind       graph.Kind
		wantStatus int
		wantCode   string
	}{
		{"not found", graph.KindNotFound, http.StatusNotFound, "NotFound"},
		{"property not found", graph.KindPropertyNotFound, http.StatusNotFound, "PropertyNotFound"},
		{"index out of range", graph.KindIndexOutOfRange, http.StatusNotFound, "IndexOutOfRange"},
		{"type mismatch", graph.KindTypeMismatch, http.StatusBadRequest, "TypeMismatch"},
		{"cyclic reference", graph.KindCyclicReference, http.StatusConflict, "CyclicReference"},
		{"fetch timeout", graph.KindFetchTimeout, http.StatusGatewayTimeout, "FetchTimeout"},
		{"transient", graph.KindTransient, http.StatusBadGateway, "TransientError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RenderGraphError(rec, &graph.Error{Kind: tt.kind, Message: "boom"})

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestRenderGraphError_IncludesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderGraphError(rec, &graph.Error{
		Kind:     graph.KindPropertyNotFound,
		ObjectID: "abc123",
		Segment:  "a.b",
	})

	body := decodeError(t, rec)
	assert.Equal(t, "abc123", body.Details["object_id"])
	assert.Equal(t, "a.b", body.Details["segment"])
}

func TestRenderGraphError_ParseError(t *testing.T) {
	_, err := propertypath.Parse("a..b")
	require.Error(t, err)

	rec := httptest.NewRecorder()
	RenderGraphError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "InvalidPath", body.Code)
	assert.Equal(t, "a..b", body.Details["path"])
	assert.NotNil(t, body.Details["column"])
}

func TestRenderGraphError_WrappedError(t *testing.T) {
	wrapped := graph.NewNotFound("deadbeef")
	rec := httptest.NewRecorder()
	RenderGraphError(rec, wrapped)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderGraphError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderGraphError(rec, errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal_error", body.Code)
}
