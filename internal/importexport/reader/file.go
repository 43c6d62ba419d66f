package reader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// File reads a project document from a single JSON file on disk. The file
// is decoded lazily on first use.
type File struct {
	path          string
	relationNames []string

	once sync.Once
	tree *tree
	err  error
}

// NewFile returns a reader for the JSON document at path. relationNames is
// the fixed set of keys treated as relations.
func NewFile(path string, relationNames []string) *File {
	return &File{path: path, relationNames: relationNames}
}

func (f *File) load() {
	f.once.Do(func() {
		data, err := os.ReadFile(f.path)
		if err != nil {
			f.err = fmt.Errorf("reading %s: %w", f.path, err)
			return
		}
		root, err := decode(data)
		if err != nil {
			f.err = fmt.Errorf("decoding %s: %w", f.path, err)
			return
		}
		f.tree = newTree(root, f.relationNames)
	})
}

// decode parses a single JSON object, keeping numbers as json.Number so ids
// survive without float rounding.
func decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncorrectFormat, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrIncorrectFormat)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrIncorrectFormat)
	}
	return root, nil
}

// Valid reports whether the file exists and parses as a JSON object.
func (f *File) Valid() bool {
	f.load()
	return f.err == nil
}

// Err returns the load error, if any.
func (f *File) Err() error {
	f.load()
	return f.err
}

func (f *File) RootAttributes(excluded ...string) map[string]any {
	if !f.Valid() {
		return nil
	}
	return f.tree.rootAttributes(excluded)
}

func (f *File) ConsumeRelation(key string, fn func(rec Record, idx int) error) error {
	if !f.Valid() {
		return f.err
	}
	return f.tree.consumeRelation(key, fn)
}

func (f *File) TransformRelation(key string, fn func(records []any) []any) {
	if !f.Valid() {
		return
	}
	f.tree.transformRelation(key, fn)
}

// Hash serves an already decoded document.
type Hash struct {
	tree *tree
}

// NewHash returns a reader over doc. The reader consumes doc in place.
func NewHash(doc map[string]any, relationNames []string) *Hash {
	if doc == nil {
		return &Hash{}
	}
	return &Hash{tree: newTree(doc, relationNames)}
}

// ParseHash decodes data into a Hash reader.
func ParseHash(data []byte, relationNames []string) (*Hash, error) {
	root, err := decode(data)
	if err != nil {
		return nil, err
	}
	return NewHash(root, relationNames), nil
}

func (h *Hash) Valid() bool { return h.tree != nil }

func (h *Hash) RootAttributes(excluded ...string) map[string]any {
	if h.tree == nil {
		return nil
	}
	return h.tree.rootAttributes(excluded)
}

func (h *Hash) ConsumeRelation(key string, fn func(rec Record, idx int) error) error {
	if h.tree == nil {
		return nil
	}
	return h.tree.consumeRelation(key, fn)
}

func (h *Hash) TransformRelation(key string, fn func(records []any) []any) {
	if h.tree == nil {
		return
	}
	h.tree.transformRelation(key, fn)
}
