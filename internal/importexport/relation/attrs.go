package relation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
)

// importedStampLayout renders timestamps in attribution prefixes.
const importedStampLayout = "2006-01-02 15:04:05 UTC"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 UTC",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// timestamp reads a required timestamp; a missing value means now.
func timestamp(relation string, attrs reader.Record, key string, c *Context) (time.Time, error) {
	s := attrs.String(key)
	if s == "" {
		return c.now().UTC(), nil
	}
	t, err := parseTime(s)
	if err != nil {
		return time.Time{}, invalid(relation, "%s: %v", key, err)
	}
	return t, nil
}

func optionalTime(relation string, attrs reader.Record, key string) (*time.Time, error) {
	s := attrs.String(key)
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, invalid(relation, "%s: %v", key, err)
	}
	return &t, nil
}

// actorRef finds the exported reference for an actor field: base_ref,
// base_id, or a nested base object with a username or email.
func actorRef(attrs reader.Record, base string) any {
	if s := attrs.String(base + "_ref"); s != "" {
		return s
	}
	if attrs.Has(base + "_id") {
		return attrs[base+"_id"]
	}
	if obj, ok := attrs.Object(base); ok {
		for _, k := range []string{"email", "username"} {
			if s := obj.String(k); s != "" {
				return s
			}
		}
		if obj.Has("id") {
			return obj["id"]
		}
	}
	return nil
}

func refString(ref any) string {
	if s, ok := ref.(string); ok {
		return s
	}
	if n, ok := reader.ToInt64(ref); ok {
		return fmt.Sprintf("user #%d", n)
	}
	return fmt.Sprint(ref)
}

// actor resolves a required actor field. An absent reference silently
// yields the fallback actor; a reference that does not resolve also yields
// the fallback actor and records a notice. unresolved is the exported
// reference in that second case.
func actor(attrs reader.Record, base string, c *Context, b *Built) (id int64, unresolved string) {
	ref := actorRef(attrs, base)
	id, ok := c.Actors.Actor(ref)
	if ref == nil || ok {
		return id, ""
	}
	name := refString(ref)
	b.Notices = append(b.Notices, failure.Notice{
		Kind:    failure.UnresolvedIdentity,
		Message: fmt.Sprintf("%s %q not found; attributed to the fallback actor", base, name),
	})
	return id, name
}

// optionalActor resolves an actor field that may be absent.
func optionalActor(attrs reader.Record, base string, c *Context, b *Built) *int64 {
	if actorRef(attrs, base) == nil {
		return nil
	}
	id, _ := actor(attrs, base, c, b)
	return &id
}

// position serializes a diff note position, which exports carry either as
// an object or as an encoded string.
func position(v any) (string, error) {
	switch p := v.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
