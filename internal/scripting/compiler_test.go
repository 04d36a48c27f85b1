package scripting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompiler_Compile(t *testing.T) {
	c := NewCompiler(nil)

	res := c.Compile("function onStart() end", "a")
	require.True(t, res.Success)
	require.NoError(t, res.Err)
	require.Equal(t, Hash("function onStart() end"), res.Bundle.Hash)

	b, ok := c.Lookup("a")
	require.True(t, ok)
	require.Same(t, res.Bundle, b)

	t.Run("recompile replaces the bundle", func(t *testing.T) {
		again := c.Compile("function onUpdate(dt) end", "a")
		require.True(t, again.Success)
		b, _ := c.Lookup("a")
		require.Same(t, again.Bundle, b)
		require.Greater(t, again.Bundle.Version, res.Bundle.Version)
		require.Equal(t, 1, c.Len())
	})

	t.Run("failure is a result and keeps the previous bundle", func(t *testing.T) {
		before, _ := c.Lookup("a")
		bad := c.Compile("local a = 1\nlocal b = 2\nlocal = 3\n", "a")
		require.False(t, bad.Success)
		require.True(t, errors.Is(bad.Err, ErrCompile))
		var ce *CompileError
		require.True(t, errors.As(bad.Err, &ce))
		require.Equal(t, 3, ce.Line)
		after, _ := c.Lookup("a")
		require.Same(t, before, after)
	})

	t.Run("typed source compiles", func(t *testing.T) {
		src := "local speed: number = 2\nfunction onUpdate(dt: number): nil\n  local d: number = speed * dt\nend\n"
		require.True(t, c.Compile(src, "typed").Success)
	})

	t.Run("remove and clear", func(t *testing.T) {
		require.True(t, c.Remove("typed"))
		require.False(t, c.Remove("typed"))
		c.Clear()
		require.Zero(t, c.Len())
	})
}

func TestCompiler_CompileFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("spin.lua", "function onUpdate(dt) end")
	write("enemies/patrol.tlua", "function onStart(): nil end")
	write("broken.lua", "function (")
	write("notes.txt", "not a script")

	c := NewCompiler(nil)
	results, err := c.CompileFiles(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "broken", results[0].ScriptID)
	require.False(t, results[0].Success)
	require.Equal(t, "enemies/patrol", results[1].ScriptID)
	require.True(t, results[1].Success)
	require.Equal(t, "spin", results[2].ScriptID)
	require.Equal(t, 2, c.Len())

	_, err = c.CompileFiles(context.Background(), filepath.Join(dir, "missing"))
	require.Error(t, err)
}
