// Package reader exposes an export document as root attributes plus named
// relations that are each consumed exactly once.
package reader

import (
	"errors"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/filter"
)

var (
	// ErrDocumentFormat is returned when no candidate reader accepts the
	// document.
	ErrDocumentFormat = errors.New("unsupported export document")
	// ErrIncorrectFormat is returned when the document cannot be parsed.
	ErrIncorrectFormat = errors.New("incorrect JSON format")
)

// Reader is the contract shared by every document reader.
type Reader interface {
	// Valid reports whether this reader can serve the document.
	Valid() bool
	// RootAttributes returns top-level fields except relation keys and
	// excluded keys.
	RootAttributes(excluded ...string) map[string]any
	// ConsumeRelation removes the relation and calls fn for each record with
	// its original index. An object-shaped relation yields one record at
	// index 0. A missing relation is a no-op. The first error from fn stops
	// iteration and is returned.
	ConsumeRelation(key string, fn func(rec Record, idx int) error) error
	// TransformRelation replaces an array-shaped relation with the result of
	// fn before it is consumed.
	TransformRelation(key string, fn func(records []any) []any)
}

// tree is the in-memory working set shared by the File and Hash readers.
type tree struct {
	root      map[string]any
	relations map[string]struct{}
}

func newTree(root map[string]any, relationNames []string) *tree {
	return &tree{root: root, relations: filter.ToStringSet(relationNames)}
}

func (t *tree) rootAttributes(excluded []string) map[string]any {
	skip := filter.ToStringSet(excluded)
	out := make(map[string]any, len(t.root))
	for k, v := range t.root {
		if _, ok := t.relations[k]; ok {
			continue
		}
		if _, ok := skip[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

func (t *tree) consumeRelation(key string, fn func(rec Record, idx int) error) error {
	if _, ok := t.relations[key]; !ok {
		return nil
	}
	value, ok := t.root[key]
	if !ok {
		return nil
	}
	delete(t.root, key)

	switch v := value.(type) {
	case []any:
		for i, item := range v {
			rec, ok := AsRecord(item)
			if !ok {
				continue
			}
			if err := fn(rec, i); err != nil {
				return err
			}
		}
	case nil:
	default:
		rec, ok := AsRecord(v)
		if !ok {
			return fmt.Errorf("relation %q: unexpected %s: %w", key, describe(v), ErrIncorrectFormat)
		}
		return fn(rec, 0)
	}
	return nil
}

func (t *tree) transformRelation(key string, fn func(records []any) []any) {
	if _, ok := t.relations[key]; !ok {
		return
	}
	records, ok := t.root[key].([]any)
	if !ok {
		return
	}
	t.root[key] = fn(records)
}

// Select returns the first valid reader. When none is valid the error wraps
// ErrDocumentFormat and any load error a reader reported.
func Select(readers ...Reader) (Reader, error) {
	var errs []error
	for _, r := range readers {
		if r == nil {
			continue
		}
		if r.Valid() {
			return r, nil
		}
		if e, ok := r.(interface{ Err() error }); ok {
			if err := e.Err(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrDocumentFormat, errors.Join(errs...))
	}
	return nil, ErrDocumentFormat
}
