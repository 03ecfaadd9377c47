package graph

import (
	"context"
	"fmt"

	"github.com/benregnier/speckle-mcp-gpt/internal/propertypath"
)

// Evaluator walks a compiled property path from a root object, resolving
// reference markers lazily: only the objects the path actually crosses
// are fetched, and each marker is expanded just one level, far enough to
// take the next step.
type Evaluator struct {
	cache *RequestCache
}

// NewEvaluator creates an evaluator over the given request cache.
func NewEvaluator(cache *RequestCache) *Evaluator {
	return &Evaluator{cache: cache}
}

// Evaluate returns the value selected by path from the object graph
// rooted at rootID. The result is never an unresolved marker: a marker
// in final position is rendered as its target's raw data. Failures carry
// the path prefix walked so far.
func (e *Evaluator) Evaluate(ctx context.Context, rootID string, path propertypath.CompiledPath) (any, error) {
	obj, err := e.cache.Get(ctx, rootID)
	if err != nil {
		return nil, err
	}

	// visiting guards the chain of marker resolutions along this one
	// path. The path itself is finite, but a marker target resolved
	// mid-path can immediately reference itself; ids are pushed and
	// never popped because the walk only ever descends.
	visiting := map[string]struct{}{rootID: {}}

	var current any = obj.Data
	for i, step := range path.Steps {
		current, err = e.deref(ctx, current, visiting, path.Prefix(i))
		if err != nil {
			return nil, err
		}

		switch step.Kind {
		case propertypath.IndexStep:
			seq, ok := current.([]any)
			if !ok {
				return nil, &Error{
					Kind:    KindTypeMismatch,
					Segment: path.Prefix(i + 1),
					Message: fmt.Sprintf("cannot index into %s", shapeName(current)),
				}
			}
			if step.Index >= len(seq) {
				return nil, &Error{
					Kind:    KindIndexOutOfRange,
					Segment: path.Prefix(i + 1),
					Message: fmt.Sprintf("index %d exceeds sequence of length %d", step.Index, len(seq)),
				}
			}
			current = seq[step.Index]
		default:
			m, ok := current.(map[string]any)
			if !ok {
				return nil, &Error{
					Kind:    KindTypeMismatch,
					Segment: path.Prefix(i + 1),
					Message: fmt.Sprintf("cannot select field %q from %s", step.Field, shapeName(current)),
				}
			}
			next, present := m[step.Field]
			if !present {
				return nil, &Error{
					Kind:    KindPropertyNotFound,
					Segment: path.Prefix(i + 1),
					Message: fmt.Sprintf("property %q not found", step.Field),
				}
			}
			current = next
		}
	}

	// The caller never observes an unresolved marker as the final value.
	return e.deref(ctx, current, visiting, path.String())
}

// deref replaces v with its target's raw data while v is a reference
// marker. One marker normally needs one fetch, but a target whose data
// is itself marker-shaped is followed again, with visiting catching
// self-reference.
func (e *Evaluator) deref(ctx context.Context, v any, visiting map[string]struct{}, segment string) (any, error) {
	for {
		id, ok := ReferenceID(v)
		if !ok {
			return v, nil
		}
		if _, descending := visiting[id]; descending {
			err := NewCyclicReference(id)
			err.Segment = segment
			return nil, err
		}
		visiting[id] = struct{}{}
		obj, err := e.cache.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		v = obj.Data
	}
}

// shapeName names a value's shape for type mismatch messages.
func shapeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "a mapping"
	case []any:
		return "a sequence"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("a %T scalar", v)
	}
}
