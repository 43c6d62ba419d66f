// Package members maps exported user references to destination users and
// grants project access to the users it resolves.
package members

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/failure"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/reader"
	"github.com/ALT-F4-LLC/treeport/internal/model"
)

// Missing marks a reference that appeared in the export but matched no
// destination user.
const Missing int64 = -1

// Directory is the part of the persistence capability the mapper needs.
type Directory interface {
	LookupUser(ctx context.Context, email, username string) (*model.User, bool, error)
	MemberAccessLevel(ctx context.Context, projectID, userID int64) (model.AccessLevel, bool, error)
	AddMember(ctx context.Context, m *model.ProjectMember) error
}

// Mapper resolves exported actor references. It is built once per restore
// and not modified afterwards.
type Mapper struct {
	byID     map[int64]int64
	byRef    map[string]int64
	fallback int64
	notices  []failure.Notice
}

// member is one parsed membership record.
type member struct {
	sourceID int64
	username string
	email    string
	level    model.AccessLevel
}

func parseMember(rec reader.Record) (member, error) {
	var m member

	raw, ok := rec["access_level"]
	if !ok {
		raw, ok = rec["accessLevel"]
	}
	if !ok {
		return m, fmt.Errorf("missing access level")
	}
	level, err := model.ParseAccessLevel(raw)
	if err != nil {
		return m, err
	}
	m.level = level

	if u, ok := rec.Object("user"); ok {
		m.sourceID, _ = u.Int64("id")
		m.username = u.String("username")
		m.email = u.String("email")
	}
	if ref := rec.String("reference"); ref != "" {
		if strings.Contains(ref, "@") {
			m.email = ref
		} else {
			m.username = ref
		}
	}
	if m.sourceID == 0 {
		m.sourceID, _ = rec.Int64("user_id")
	}
	if m.username == "" && m.email == "" {
		return m, fmt.Errorf("missing user reference")
	}
	return m, nil
}

func (m member) label() string {
	if m.username != "" {
		return m.username
	}
	return m.email
}

// Build resolves every membership record against dir and grants the
// resolved users access to projectID, capped by the importer's own level.
// Admin importers are not capped. The importer is made at least a
// maintainer. fallbackID attributes content of unresolved actors.
func Build(
	ctx context.Context,
	dir Directory,
	records []reader.Record,
	projectID int64,
	importer *model.User,
	fallbackID int64,
	log *zap.Logger,
) (*Mapper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Mapper{
		byID:     make(map[int64]int64),
		byRef:    make(map[string]int64),
		fallback: fallbackID,
	}

	if err := dir.AddMember(ctx, &model.ProjectMember{
		ProjectID:   projectID,
		UserID:      importer.ID,
		AccessLevel: model.AccessMaintainer,
	}); err != nil {
		return nil, fmt.Errorf("adding importer as member: %w", err)
	}

	limit := model.AccessOwner
	if !importer.Admin {
		level, _, err := dir.MemberAccessLevel(ctx, projectID, importer.ID)
		if err != nil {
			return nil, fmt.Errorf("reading importer access: %w", err)
		}
		limit = level
	}

	for idx, rec := range records {
		mem, err := parseMember(rec)
		if err != nil {
			m.notice(failure.UnresolvedMember, idx, fmt.Sprintf("membership record skipped: %v", err))
			log.Info("membership record skipped", zap.Int("index", idx), zap.Error(err))
			continue
		}

		user, ok, err := dir.LookupUser(ctx, mem.email, mem.username)
		if err != nil {
			return nil, fmt.Errorf("looking up member %q: %w", mem.label(), err)
		}
		if !ok {
			m.register(mem, Missing)
			m.notice(failure.UnresolvedMember, idx, fmt.Sprintf("member %q not found; content falls back to the default actor", mem.label()))
			log.Info("member not found", zap.String("member", mem.label()))
			continue
		}

		m.register(mem, user.ID)
		if user.ID == importer.ID {
			continue
		}
		if err := dir.AddMember(ctx, &model.ProjectMember{
			ProjectID:   projectID,
			UserID:      user.ID,
			AccessLevel: mem.level.Min(limit),
		}); err != nil {
			return nil, fmt.Errorf("adding member %q: %w", mem.label(), err)
		}
	}

	return m, nil
}

func (m *Mapper) register(mem member, id int64) {
	if mem.sourceID != 0 {
		m.byID[mem.sourceID] = id
	}
	if mem.username != "" {
		m.byRef[strings.ToLower(mem.username)] = id
	}
	if mem.email != "" {
		m.byRef[strings.ToLower(mem.email)] = id
	}
}

func (m *Mapper) notice(kind failure.NoticeKind, idx int, msg string) {
	m.notices = append(m.notices, failure.Notice{
		Kind:          kind,
		RelationKey:   "project_members",
		RelationIndex: idx,
		Path:          "project_members",
		Message:       msg,
	})
}

// Lookup resolves ref, which is an exported numeric user id or a username
// or email. It returns Missing for references seen in the membership but not
// found, and false for references never seen.
func (m *Mapper) Lookup(ref any) (int64, bool) {
	if s, ok := ref.(string); ok {
		if id, ok := m.byRef[strings.ToLower(strings.TrimSpace(s))]; ok {
			return id, true
		}
		if _, numeric := reader.ToInt64(s); !numeric {
			return 0, false
		}
	}
	if n, ok := reader.ToInt64(ref); ok {
		id, ok := m.byID[n]
		return id, ok
	}
	return 0, false
}

// Actor resolves ref to a destination user, returning the fallback actor and
// false when ref does not resolve.
func (m *Mapper) Actor(ref any) (int64, bool) {
	id, ok := m.Lookup(ref)
	if !ok || id == Missing {
		return m.fallback, false
	}
	return id, true
}

// Fallback returns the actor unresolved references are attributed to.
func (m *Mapper) Fallback() int64 { return m.fallback }

// Notices returns the notices recorded while building the mapping.
func (m *Mapper) Notices() []failure.Notice { return m.notices }

// Len returns the number of distinct references known to the mapper.
func (m *Mapper) Len() int { return len(m.byID) + len(m.byRef) }
