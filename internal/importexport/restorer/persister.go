package restorer

import (
	"context"

	"github.com/ALT-F4-LLC/treeport/internal/importexport/members"
	"github.com/ALT-F4-LLC/treeport/internal/importexport/objectbuilder"
)

// Persister is the persistence capability a restore writes through.
// *db.Store implements it.
type Persister interface {
	objectbuilder.Store
	members.Directory

	UpdateProject(ctx context.Context, id int64, fields map[string]any) error
	GroupCatalog(ctx context.Context, groupID int64) (labels, milestones map[string]int64, err error)
	EnsureGhostUser(ctx context.Context) (int64, error)
	SetLatestMergeRequestDiffIDs(ctx context.Context, projectID int64) error
}
