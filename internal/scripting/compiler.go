package scripting

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Capabilities lists the names bound inside every script, in the positional
// order the compiled chunk receives them.
var Capabilities = []string{
	"entity", "math", "input", "time", "console", "events",
	"audio", "timer", "query", "GameObject", "params", "prefab", "save",
}

// The prelude shares line 1 with the user's first line so compiled line
// numbers match the source.
var (
	chunkPrelude = "local " + strings.Join(Capabilities, ", ") + " = ...; " +
		"local onStart, onUpdate, onDestroy, onEnable, onDisable; " +
		"local __m = (function(...) "
	chunkEpilogue = "\nend)(...)\n" +
		"if type(__m) ~= \"table\" then __m = {} end\n" +
		"return { onStart = __m.onStart or onStart, onUpdate = __m.onUpdate or onUpdate, " +
		"onDestroy = __m.onDestroy or onDestroy, onEnable = __m.onEnable or onEnable, " +
		"onDisable = __m.onDisable or onDisable }\n"
)

// Bundle is a compiled script. Proto is immutable and shared by every
// context that runs the script.
type Bundle struct {
	ScriptID string
	Proto    *lua.FunctionProto
	Hash     uint64
	Version  uint64
}

// Result is the outcome of one compilation. Err is a *CompileError when
// Success is false.
type Result struct {
	ScriptID string
	Success  bool
	Err      error
	Bundle   *Bundle
	Duration time.Duration
}

// Compiler turns script source into bundles and caches them by script id.
// Safe for concurrent use.
type Compiler struct {
	mu      sync.RWMutex
	bundles map[string]*Bundle
	version uint64
	log     *zap.Logger
}

func NewCompiler(log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{
		bundles: make(map[string]*Bundle, 64),
		log:     log,
	}
}

// Hash returns the content hash Compile records for source.
func Hash(source string) uint64 {
	return xxhash.Sum64String(source)
}

// Compile lowers, wraps and compiles source, replacing any bundle cached
// under scriptID. A failed compile leaves the previous bundle in place.
func (c *Compiler) Compile(source, scriptID string) Result {
	start := time.Now()
	res := Result{ScriptID: scriptID}

	proto, err := compileChunk(lowerTypes(source), scriptID)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		c.log.Warn("script compile failed", zap.String("script", scriptID), zap.Error(err))
		return res
	}

	c.mu.Lock()
	c.version++
	b := &Bundle{ScriptID: scriptID, Proto: proto, Hash: Hash(source), Version: c.version}
	c.bundles[scriptID] = b
	c.mu.Unlock()

	res.Success = true
	res.Bundle = b
	c.log.Debug("script compiled",
		zap.String("script", scriptID), zap.Uint64("version", b.Version), zap.Duration("took", res.Duration))
	return res
}

func compileChunk(source, scriptID string) (*lua.FunctionProto, error) {
	chunk := chunkPrelude + source + chunkEpilogue
	stmts, err := parse.Parse(strings.NewReader(chunk), scriptID)
	if err != nil {
		return nil, toCompileError(scriptID, err)
	}
	proto, err := lua.Compile(stmts, scriptID)
	if err != nil {
		return nil, toCompileError(scriptID, err)
	}
	return proto, nil
}

func toCompileError(scriptID string, err error) *CompileError {
	ce := &CompileError{ScriptID: scriptID, Message: err.Error()}
	var perr *parse.Error
	if errors.As(err, &perr) {
		ce.Line = perr.Pos.Line
		ce.Column = perr.Pos.Column
		if ce.Line == 1 {
			ce.Column -= len(chunkPrelude)
		}
		ce.Message = perr.Message
		if perr.Token != "" {
			ce.Message += " near '" + perr.Token + "'"
		}
	}
	return ce
}

func (c *Compiler) Lookup(scriptID string) (*Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bundles[scriptID]
	return b, ok
}

func (c *Compiler) Remove(scriptID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bundles[scriptID]; !ok {
		return false
	}
	delete(c.bundles, scriptID)
	return true
}

func (c *Compiler) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.bundles)
}

func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bundles)
}

// ScriptExts are the file extensions CompileFiles picks up.
var ScriptExts = []string{".lua", ".tlua"}

// ScriptIDForPath derives a script id from a path relative to the scripts
// directory: "enemies/patrol.lua" becomes "enemies/patrol".
func ScriptIDForPath(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// CompileFiles compiles every script under dir in parallel. The returned
// error covers I/O only; compile failures are reported in the results,
// which are sorted by script id.
func (c *Compiler) CompileFiles(ctx context.Context, dir string) ([]Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range ScriptExts {
			if filepath.Ext(path) == ext {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scripts %s: %w", dir, err)
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read script %s: %w", path, err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			results[i] = c.Compile(string(src), ScriptIDForPath(rel))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ScriptID < results[j].ScriptID })

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	c.log.Info("scripts compiled", zap.String("dir", dir), zap.Int("ok", ok), zap.Int("failed", len(results)-ok))
	return results, nil
}
