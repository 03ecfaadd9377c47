// Package graph resolves content-addressed object graphs.
//
// Objects are identified by a content hash and hold an arbitrary tree of
// mappings, sequences, and scalars (the shape of decoded JSON). Anywhere
// inside that tree a reference marker may point to another object by id,
// turning independent objects into a DAG. The package provides a
// request-scoped object cache, a resolver that expands a graph either
// fully or not at all, and an evaluator that follows a compiled property
// path resolving only the markers the path actually crosses.
package graph

const (
	// ReferencedIDField marks a mapping as a reference to another object.
	ReferencedIDField = "referencedId"

	speckleTypeField = "speckle_type"
	referenceType    = "reference"
)

// Object is one content-addressed payload. ID uniquely determines Data:
// fetching the same id twice within a resolution yields identical data.
type Object struct {
	ID   string
	Data map[string]any
}

// ReferenceID reports whether v is a reference marker and returns the
// target object id. A marker is a mapping carrying a non-empty string
// referencedId field; Speckle payloads additionally tag these with
// speckle_type "reference", which is accepted but not required. A
// mapping tagged with a different speckle_type is never a marker even
// if it happens to carry a referencedId property.
func ReferenceID(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m[ReferencedIDField].(string)
	if !ok || id == "" {
		return "", false
	}
	if tag, tagged := m[speckleTypeField]; tagged {
		if s, isString := tag.(string); !isString || s != referenceType {
			return "", false
		}
	}
	return id, true
}

// IsScalar reports whether v is a scalar value: string, number, boolean,
// or null. Mappings and sequences are not scalars.
func IsScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
