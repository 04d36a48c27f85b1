package system

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	coresys "github.com/vibeforge/engine/internal/core/system"
	"github.com/vibeforge/engine/internal/scripting"
)

type ScriptSystemOptions struct {
	// ScriptsDir resolves relative Script.Path values.
	ScriptsDir string
	// HotReload recompiles file scripts whose mtime or size changed.
	HotReload   bool
	FrameBudget time.Duration
}

// ScriptStats counts the lifecycle calls of the last Update.
type ScriptStats struct {
	Executed   int
	Failed     int
	OverBudget int
}

type scriptState struct {
	scriptID string
	version  uint64 // bundle version onStart ran against
	started  bool
	enabled  bool
}

type fileStamp struct {
	modTime time.Time
	size    int64
	missing bool
}

// ScriptSystem drives every entity carrying a Script component through its
// lifecycle: compile on demand, onStart once active, onEnable/onDisable on
// transitions, timers, then onUpdate. Removing the component or destroying
// the entity runs onDestroy and releases the context. Phase 2 (Scripting).
type ScriptSystem struct {
	world   *ecs.World
	manager *scripting.Manager
	input   *InputSystem
	opts    ScriptSystemOptions
	log     *zap.Logger

	states  map[ecs.EntityID]*scriptState
	files   map[string]fileStamp
	failed  map[string]uint64 // script id -> hash of the source that failed
	elapsed float64
	frame   uint64
	stats   ScriptStats
}

// NewScriptSystem wires the system. input may be nil for headless runs.
func NewScriptSystem(world *ecs.World, manager *scripting.Manager, input *InputSystem,
	opts ScriptSystemOptions, log *zap.Logger) *ScriptSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptSystem{
		world:   world,
		manager: manager,
		input:   input,
		opts:    opts,
		log:     log,
		states:  make(map[ecs.EntityID]*scriptState),
		files:   make(map[string]fileStamp),
		failed:  make(map[string]uint64),
	}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseScripting }

func (s *ScriptSystem) Update(dt time.Duration) {
	s.frame++
	s.elapsed += dt.Seconds()
	s.stats = ScriptStats{}

	reg := s.world.Registry()
	store := s.world.Entities()
	seen := make(map[ecs.EntityID]bool, len(s.states))
	for _, id := range reg.EntitiesWith(component.ScriptType) {
		sc, ok := ecs.Get[component.Script](reg, id, component.ScriptType)
		if !ok {
			continue
		}
		seen[id] = true

		st := s.states[id]
		if st != nil && st.scriptID != sc.ScriptID {
			s.stop(id, st, sc.Parameters)
			st = nil
		}
		if st == nil {
			st = &scriptState{scriptID: sc.ScriptID}
			s.states[id] = st
		}
		b, ok := s.ensureCompiled(sc)
		if !ok {
			continue
		}
		if st.started && st.version != b.Version {
			// recompiled: the fresh instance starts over
			st.started = false
		}

		active := sc.Enabled && store.ActiveInHierarchy(id)
		opts := s.execOptions(id, sc.Parameters, dt)
		switch {
		case !st.started:
			if !active {
				continue
			}
			s.exec(sc.ScriptID, opts, scripting.OnStart)
			st.started, st.enabled, st.version = true, true, b.Version
		case active != st.enabled:
			lc := scripting.OnDisable
			if active {
				lc = scripting.OnEnable
			}
			s.exec(sc.ScriptID, opts, lc)
			st.enabled = active
		}
		if !active {
			continue
		}
		s.manager.AdvanceTimers(id, dt)
		s.exec(sc.ScriptID, opts, scripting.OnUpdate)
	}

	var gone []ecs.EntityID
	for id := range s.states {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		s.stop(id, s.states[id], nil)
	}
}

// EntityDestroyed runs onDestroy for a started script and releases the
// entity's context. Register it as a CleanupSystem hook.
func (s *ScriptSystem) EntityDestroyed(id ecs.EntityID) {
	st, ok := s.states[id]
	if !ok {
		s.manager.RemoveScriptContext(id)
		return
	}
	sc, _ := ecs.Get[component.Script](s.world.Registry(), id, component.ScriptType)
	s.stop(id, st, sc.Parameters)
}

func (s *ScriptSystem) stop(id ecs.EntityID, st *scriptState, params map[string]any) {
	if st.started {
		s.exec(st.scriptID, s.execOptions(id, params, 0), scripting.OnDestroy)
	}
	delete(s.states, id)
	s.manager.RemoveScriptContext(id)
}

// Stats returns the counters of the last Update.
func (s *ScriptSystem) Stats() ScriptStats { return s.stats }

// Running reports how many entities have a started script.
func (s *ScriptSystem) Running() int {
	n := 0
	for _, st := range s.states {
		if st.started {
			n++
		}
	}
	return n
}

func (s *ScriptSystem) execOptions(id ecs.EntityID, params map[string]any, dt time.Duration) scripting.ExecOptions {
	opts := scripting.ExecOptions{
		EntityID: id,
		Time: scripting.TimeInfo{
			Time:       s.elapsed,
			DeltaTime:  dt.Seconds(),
			FrameCount: s.frame,
		},
		Parameters: params,
		Budget:     s.opts.FrameBudget,
	}
	if s.input != nil {
		opts.Input = s.input.Snapshot()
	}
	return opts
}

func (s *ScriptSystem) exec(scriptID string, opts scripting.ExecOptions, lc scripting.Lifecycle) {
	res := s.manager.ExecuteScript(scriptID, opts, lc)
	s.stats.Executed++
	if !res.Success {
		s.stats.Failed++
	}
	if res.OverBudget {
		s.stats.OverBudget++
	}
}

// ensureCompiled returns the bundle to run for sc. Inline source wins over a
// file path; with neither, a bundle compiled elsewhere (CompileFiles) is used.
// A failed recompile keeps the previous bundle running.
func (s *ScriptSystem) ensureCompiled(sc component.Script) (*scripting.Bundle, bool) {
	switch {
	case sc.Source != "":
		s.compileSource(sc.ScriptID, sc.Source)
	case sc.Path != "":
		s.compileFile(sc.ScriptID, sc.Path)
	}
	return s.manager.Compiler().Lookup(sc.ScriptID)
}

func (s *ScriptSystem) compileSource(scriptID, source string) {
	c := s.manager.Compiler()
	h := scripting.Hash(source)
	if b, ok := c.Lookup(scriptID); ok && b.Hash == h {
		return
	}
	if prev, ok := s.failed[scriptID]; ok && prev == h {
		return
	}
	res := c.Compile(source, scriptID)
	if !res.Success {
		s.failed[scriptID] = h
		s.log.Error("script compile failed", zap.String("script", scriptID), zap.Error(res.Err))
		return
	}
	delete(s.failed, scriptID)
	s.log.Info("script compiled",
		zap.String("script", scriptID),
		zap.Uint64("version", res.Bundle.Version),
		zap.Duration("took", res.Duration))
}

func (s *ScriptSystem) compileFile(scriptID, path string) {
	prev, known := s.files[scriptID]
	if known && !s.opts.HotReload {
		return
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.opts.ScriptsDir, path)
	}
	info, err := os.Stat(full)
	if err != nil {
		if !prev.missing {
			s.log.Error("script file unavailable", zap.String("script", scriptID), zap.Error(err))
		}
		s.files[scriptID] = fileStamp{missing: true}
		return
	}
	stamp := fileStamp{modTime: info.ModTime(), size: info.Size()}
	if known && prev == stamp {
		return
	}
	src, err := os.ReadFile(full)
	if err != nil {
		s.log.Error("script file unreadable", zap.String("script", scriptID), zap.Error(err))
		return
	}
	s.files[scriptID] = stamp
	s.compileSource(scriptID, string(src))
}
