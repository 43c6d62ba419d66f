// Package objectbuilder resolves shared entities such as labels and
// milestones by natural key so restores reuse them instead of duplicating.
package objectbuilder

import (
	"context"
	"fmt"

	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// Store is the part of the persistence capability the builder needs.
type Store interface {
	FindExisting(ctx context.Context, kind model.Kind, key string, scope model.Scope) (int64, bool, error)
	Create(ctx context.Context, e model.Entity) (int64, error)
}

// Shared is an entity matched by natural key within a scope.
type Shared interface {
	model.Entity
	NaturalKey() string
	InScope(s model.Scope)
}

type cacheKey struct {
	kind model.Kind
	key  string
}

// Builder resolves shared entities for one restore. Its cache belongs to
// that restore and must not be shared with another.
type Builder struct {
	store     Store
	projectID int64
	groupID   int64
	cache     map[cacheKey]int64

	created int
	reused  int
}

// New returns a Builder for a project, optionally inside a group.
func New(store Store, projectID, groupID int64) *Builder {
	return &Builder{
		store:     store,
		projectID: projectID,
		groupID:   groupID,
		cache:     make(map[cacheKey]int64),
	}
}

// ResolveOrCreate returns the id of the entity matching e's natural key,
// searching the cache, then the project, then the group. existingID, when
// set, is a match already found by the reader and is trusted. Only when
// nothing matches is e created in project scope. created reports whether a
// new row was inserted.
func (b *Builder) ResolveOrCreate(ctx context.Context, e Shared, existingID int64) (id int64, created bool, err error) {
	kind := e.EntityKind()
	ck := cacheKey{kind: kind, key: e.NaturalKey()}

	if ck.key != "" {
		if id, ok := b.cache[ck]; ok {
			b.reused++
			return id, false, nil
		}
		if existingID > 0 {
			b.cache[ck] = existingID
			b.reused++
			return existingID, false, nil
		}

		scopes := []model.Scope{{ProjectID: b.projectID}}
		if b.groupID != 0 {
			scopes = append(scopes, model.Scope{GroupID: b.groupID})
		}
		for _, scope := range scopes {
			id, ok, err := b.store.FindExisting(ctx, kind, ck.key, scope)
			if err != nil {
				return 0, false, fmt.Errorf("resolving %s %q: %w", kind, ck.key, err)
			}
			if ok {
				b.cache[ck] = id
				b.reused++
				return id, false, nil
			}
		}
	}

	e.InScope(model.Scope{ProjectID: b.projectID})
	id, err = b.store.Create(ctx, e)
	if err != nil {
		return 0, false, err
	}
	if ck.key != "" {
		b.cache[ck] = id
	}
	b.created++
	return id, true, nil
}

// Stats returns how many shared entities were created and reused.
func (b *Builder) Stats() (created, reused int) {
	return b.created, b.reused
}
