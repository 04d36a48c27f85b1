package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "slot1.json")

	t.Run("auto save writes through", func(t *testing.T) {
		f, err := OpenSaveFile(path, true, nil)
		require.NoError(t, err)
		require.NoError(t, f.Set("level", int64(3)))
		require.NoError(t, f.Set("inventory", map[string]any{"gold": 100.0, "items": []any{"sword"}}))

		again, err := OpenSaveFile(path, true, nil)
		require.NoError(t, err)
		v, ok := again.Get("level")
		require.True(t, ok)
		require.Equal(t, 3.0, v)
		inv, ok := again.Get("inventory")
		require.True(t, ok)
		require.Equal(t, map[string]any{"gold": 100.0, "items": []any{"sword"}}, inv)
	})

	t.Run("manual flush and reload", func(t *testing.T) {
		f, err := OpenSaveFile(path, false, nil)
		require.NoError(t, err)
		require.NoError(t, f.Delete("level"))
		require.NoError(t, f.Set("name", "Hero"))

		require.NoError(t, f.Reload())
		_, ok := f.Get("name")
		require.False(t, ok, "unflushed write discarded by reload")
		_, ok = f.Get("level")
		require.True(t, ok)

		require.NoError(t, f.Clear())
		require.NoError(t, f.Flush())
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.JSONEq(t, `{}`, string(raw))
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
		_, err := OpenSaveFile(bad, true, nil)
		require.Error(t, err)
	})
}
