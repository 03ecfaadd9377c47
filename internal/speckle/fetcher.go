package speckle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
)

// ObjectFetcher retrieves raw content-addressed objects for one project
// from the server's REST object endpoint. It implements graph.Fetcher.
//
// Transient failures and timed-out attempts are retried a bounded number
// of times with exponential backoff; NotFound and other client errors
// are never retried, and cancellation of the enclosing request stops
// further attempts immediately.
type ObjectFetcher struct {
	client    *Client
	projectID string
}

// Objects returns a fetcher scoped to one project.
func (c *Client) Objects(projectID string) graph.Fetcher {
	return &ObjectFetcher{client: c, projectID: projectID}
}

// Fetch implements graph.Fetcher.
func (f *ObjectFetcher) Fetch(ctx context.Context, objectID string) (*graph.Object, error) {
	var data map[string]any

	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, f.client.fetchTimeout)
		defer cancel()
		return f.fetchOnce(attemptCtx, ctx, objectID, &data)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	err := backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(f.client.maxRetries)), ctx))
	if err != nil {
		f.client.logger.Warn("object fetch failed",
			zap.String("project_id", f.projectID),
			zap.String("object_id", objectID),
			zap.Error(err))
		return nil, err
	}

	return &graph.Object{ID: objectID, Data: data}, nil
}

// fetchOnce performs a single fetch attempt. attemptCtx carries the
// per-attempt timeout; parentCtx distinguishes an attempt timeout, which
// is retryable, from cancellation of the whole request, which is not.
func (f *ObjectFetcher) fetchOnce(attemptCtx, parentCtx context.Context, objectID string, out *map[string]any) error {
	url := fmt.Sprintf("%s/objects/%s/%s/single", f.client.baseURL, f.projectID, objectID)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building object request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if f.client.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.client.token)
	}

	resp, err := f.client.http.Do(req)
	if err != nil {
		if parentCtx.Err() != nil {
			return backoff.Permanent(parentCtx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &graph.Error{Kind: graph.KindFetchTimeout, ObjectID: objectID, Err: err}
		}
		return &graph.Error{Kind: graph.KindTransient, ObjectID: objectID, Message: "object store unreachable", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(&graph.Error{
				Kind:     graph.KindTransient,
				ObjectID: objectID,
				Message:  "decoding object payload",
				Err:      err,
			})
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(graph.NewNotFound(objectID))
	case resp.StatusCode >= 500:
		return &graph.Error{
			Kind:     graph.KindTransient,
			ObjectID: objectID,
			Message:  fmt.Sprintf("object store returned %s", resp.Status),
		}
	default:
		return backoff.Permanent(&graph.Error{
			Kind:     graph.KindTransient,
			ObjectID: objectID,
			Message:  fmt.Sprintf("object store returned %s", resp.Status),
		})
	}
}
