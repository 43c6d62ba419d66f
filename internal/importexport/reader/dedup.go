package reader

// ExistingIDKey is set on label and milestone records that match an entity
// already present in the destination group.
const ExistingIDKey = "existing_id"

// Catalog holds titles of shared entities already in the destination group.
type Catalog struct {
	Labels     map[string]int64
	Milestones map[string]int64
}

// Dedup wraps another reader and tags shared records that match the
// destination group's catalog so they are reused instead of duplicated.
type Dedup struct {
	inner   Reader
	catalog *Catalog
}

// NewDedup returns a deduplicating reader. A nil catalog means the
// destination has no group, and the reader reports itself invalid.
func NewDedup(inner Reader, catalog *Catalog) *Dedup {
	return &Dedup{inner: inner, catalog: catalog}
}

func (d *Dedup) Valid() bool {
	return d.catalog != nil && d.inner != nil && d.inner.Valid()
}

// Err returns the wrapped reader's load error, if any.
func (d *Dedup) Err() error {
	if e, ok := d.inner.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

func (d *Dedup) RootAttributes(excluded ...string) map[string]any {
	return d.inner.RootAttributes(excluded...)
}

func (d *Dedup) ConsumeRelation(key string, fn func(rec Record, idx int) error) error {
	return d.inner.ConsumeRelation(key, func(rec Record, idx int) error {
		d.tag(key, rec)
		return fn(rec, idx)
	})
}

func (d *Dedup) TransformRelation(key string, fn func(records []any) []any) {
	d.inner.TransformRelation(key, fn)
}

func (d *Dedup) tag(key string, rec Record) {
	switch key {
	case "labels":
		d.tagLabel(rec)
	case "milestones":
		d.tagMilestone(rec)
	case "issues", "merge_requests":
		if m, ok := rec.Object("milestone"); ok {
			d.tagMilestone(m)
		}
		for _, link := range rec.Records("label_links") {
			if l, ok := link.Object("label"); ok {
				d.tagLabel(l)
			}
		}
	}
}

func (d *Dedup) tagLabel(rec Record) {
	if id, ok := d.catalog.Labels[rec.String("title")]; ok {
		rec[ExistingIDKey] = id
	}
}

func (d *Dedup) tagMilestone(rec Record) {
	if id, ok := d.catalog.Milestones[rec.String("title")]; ok {
		rec[ExistingIDKey] = id
	}
}
