package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/vibeforge/engine/internal/scene"
)

// Revision is one entry of a scene's save history.
type Revision struct {
	Revision int64
	Changes  int
	SavedAt  time.Time
}

// History lists the newest revisions of a scene first, at most limit rows.
func (r *SceneRepo) History(ctx context.Context, name string, limit int) ([]Revision, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT revision, changes, saved_at FROM scene_revisions
		 WHERE scene_name = $1
		 ORDER BY revision DESC
		 LIMIT $2`, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scene history %s: %w", name, err)
	}
	defer rows.Close()

	var result []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.Revision, &rev.Changes, &rev.SavedAt); err != nil {
			return nil, fmt.Errorf("scene history scan: %w", err)
		}
		result = append(result, rev)
	}
	return result, rows.Err()
}

// LoadRevision returns the document as it was saved at revision.
func (r *SceneRepo) LoadRevision(ctx context.Context, name string, revision int64) (*scene.Document, error) {
	var data []byte
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT document FROM scene_revisions WHERE scene_name = $1 AND revision = $2`,
		name, revision,
	).Scan(&data); err != nil {
		return nil, fmt.Errorf("load scene %s revision %d: %w", name, revision, err)
	}
	return scene.Decode(data, scene.FormatJSON)
}

// PruneHistory keeps the newest keep revisions of a scene and deletes the
// rest. Returns the number of rows removed.
func (r *SceneRepo) PruneHistory(ctx context.Context, name string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM scene_revisions
		 WHERE scene_name = $1 AND revision <= (
		     SELECT COALESCE(MAX(revision), 0) - $2 FROM scene_revisions WHERE scene_name = $1
		 )`, name, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune scene history %s: %w", name, err)
	}
	return tag.RowsAffected(), nil
}
