package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = model.ErrNotFound

// validate is shared by every Store; validator caches struct metadata and is
// safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Store is the persistence capability used by the restore pipeline. It runs
// against either a *sql.DB or a *sql.Tx.
type Store struct {
	q dbtx
}

// NewStore returns a Store issuing queries through q.
func NewStore(q dbtx) *Store {
	return &Store{q: q}
}

// ValidationError reports an entity rejected before it reached the database.
type ValidationError struct {
	Kind   model.Kind
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid %s: fields %s: %v", e.Kind, strings.Join(e.Fields, ", "), e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Permanent reports that retrying the same record cannot succeed.
func (e *ValidationError) Permanent() bool { return true }

// check runs struct validation and converts validator errors into a
// *ValidationError.
func check(kind model.Kind, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return &ValidationError{Kind: kind, Fields: fields, Err: err}
	}
	return &ValidationError{Kind: kind, Err: err}
}

func invalid(kind model.Kind, err error) error {
	return &ValidationError{Kind: kind, Err: err}
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stamp formats t for storage, substituting now for the zero time.
func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func ptrInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
