package persist

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vibeforge/engine/internal/config"
	"github.com/vibeforge/engine/internal/scene"
)

// testDSNEnv points the repository tests at a disposable PostgreSQL database.
const testDSNEnv = "VIBEFORGE_TEST_DSN"

func newTestRepo(t *testing.T) *SceneRepo {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, RunMigrations(ctx, db.Pool))
	v, err := SchemaVersion(ctx, db.Pool)
	require.NoError(t, err)
	require.GreaterOrEqual(t, v, int64(1))
	return NewSceneRepo(db)
}

func TestSceneRepo(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	t.Cleanup(func() { _, _ = repo.Delete(context.Background(), name) })

	doc := &scene.Document{
		Name:    name,
		Version: scene.FormatVersion,
		Entities: []scene.Node{{
			Name:       "Cube",
			Components: map[string]map[string]any{"Transform": {"position": []any{1.0, 2.0, 3.0}}},
		}},
	}
	rev, err := repo.Save(ctx, doc, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, rev)

	doc.Entities[0].Name = "Box"
	rev, err = repo.Save(ctx, doc, 1)
	require.NoError(t, err)
	require.EqualValues(t, 2, rev)

	loaded, err := repo.Load(ctx, name)
	require.NoError(t, err)
	require.Equal(t, "Box", loaded.Entities[0].Name)
	require.Equal(t, []any{1.0, 2.0, 3.0}, loaded.Entities[0].Components["Transform"]["position"])

	first, err := repo.LoadRevision(ctx, name, 1)
	require.NoError(t, err)
	require.Equal(t, "Cube", first.Entities[0].Name)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range list {
		if s.Name == name {
			found = true
			require.EqualValues(t, 2, s.Revision)
		}
	}
	require.True(t, found)

	hist, err := repo.History(ctx, name, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.EqualValues(t, 2, hist[0].Revision)
	require.Equal(t, 1, hist[0].Changes)

	pruned, err := repo.PruneHistory(ctx, name, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)

	ok, err := repo.Delete(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = repo.Load(ctx, name)
	require.True(t, errors.Is(err, ErrSceneNotFound))
	ok, err = repo.Delete(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)
}
