package graph

import (
	"context"
)

// Policy selects how far Resolve expands reference markers.
type Policy int

const (
	// PolicyNone returns the raw object data with markers left in place.
	PolicyNone Policy = iota
	// PolicyFull recursively replaces every marker with its resolved
	// target, producing a self-contained tree.
	PolicyFull
)

// Resolver expands a root object under an expansion policy. Resolution
// is a sequential depth-first walk; every object touched goes through
// the request cache, so full expansion costs one fetch per distinct
// reachable object no matter how many times it is referenced.
type Resolver struct {
	cache *RequestCache
}

// NewResolver creates a resolver over the given request cache.
func NewResolver(cache *RequestCache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve fetches the object with the given id and expands it under the
// policy. Under PolicyFull a reference pointing back toward an ancestor
// on the current descent path fails with CyclicReference.
func (r *Resolver) Resolve(ctx context.Context, objectID string, policy Policy) (any, error) {
	obj, err := r.cache.Get(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if policy == PolicyNone {
		return obj.Data, nil
	}

	visiting := map[string]struct{}{objectID: {}}
	return r.expand(ctx, obj.Data, visiting)
}

// expand walks v depth-first, splicing resolved targets in place of
// reference markers. visiting holds the ids of all ancestors on the
// current descent path; entries are removed on the way back up so that
// shared (diamond) substructure is not mistaken for a cycle.
func (r *Resolver) expand(ctx context.Context, v any, visiting map[string]struct{}) (any, error) {
	if id, ok := ReferenceID(v); ok {
		if _, descending := visiting[id]; descending {
			return nil, NewCyclicReference(id)
		}
		obj, err := r.cache.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		visiting[id] = struct{}{}
		resolved, err := r.expand(ctx, obj.Data, visiting)
		delete(visiting, id)
		if err != nil {
			return nil, err
		}
		return resolved, nil
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, child := range t {
			resolved, err := r.expand(ctx, child, visiting)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			resolved, err := r.expand(ctx, child, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return t, nil
	}
}
