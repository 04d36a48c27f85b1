package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vibeforge/engine/internal/scene"
)

var ErrSceneNotFound = errors.New("scene not found")

// SceneInfo summarizes one stored scene.
type SceneInfo struct {
	Name      string
	Revision  int64
	UpdatedAt time.Time
}

// SceneRepo stores scene documents as JSONB, one row per scene name, plus
// an append-only revision history.
type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// Save upserts doc under doc.Name and appends a revision row in the same
// transaction. changes is recorded with the revision (0 when unknown).
// Returns the new revision number.
func (r *SceneRepo) Save(ctx context.Context, doc *scene.Document, changes int) (int64, error) {
	if doc.Name == "" {
		return 0, fmt.Errorf("save scene: empty name")
	}
	data, err := scene.Encode(doc, scene.FormatJSON)
	if err != nil {
		return 0, fmt.Errorf("save scene %s: %w", doc.Name, err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("save scene begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var revision int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO scenes (name, revision, format, document, updated_at)
		 VALUES ($1, 1, $2, $3, now())
		 ON CONFLICT (name) DO UPDATE
		 SET revision = scenes.revision + 1, format = EXCLUDED.format,
		     document = EXCLUDED.document, updated_at = now()
		 RETURNING revision`,
		doc.Name, doc.Version, data,
	).Scan(&revision); err != nil {
		return 0, fmt.Errorf("save scene %s: %w", doc.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_revisions (scene_name, revision, changes, document)
		 VALUES ($1, $2, $3, $4)`,
		doc.Name, revision, changes, data,
	); err != nil {
		return 0, fmt.Errorf("save scene revision %s: %w", doc.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("save scene commit: %w", err)
	}
	return revision, nil
}

// Load returns the latest document stored under name.
func (r *SceneRepo) Load(ctx context.Context, name string) (*scene.Document, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT document FROM scenes WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", name, err)
	}
	return scene.Decode(data, scene.FormatJSON)
}

func (r *SceneRepo) List(ctx context.Context) ([]SceneInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, revision, updated_at FROM scenes ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var result []SceneInfo
	for rows.Next() {
		var s SceneInfo
		if err := rows.Scan(&s.Name, &s.Revision, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list scenes scan: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Delete removes a scene and its history. Reports whether it existed.
func (r *SceneRepo) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM scenes WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete scene %s: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}
