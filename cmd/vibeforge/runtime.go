package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/config"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/core/event"
	"github.com/vibeforge/engine/internal/core/mutation"
	coresys "github.com/vibeforge/engine/internal/core/system"
	"github.com/vibeforge/engine/internal/persist"
	"github.com/vibeforge/engine/internal/scene"
	"github.com/vibeforge/engine/internal/scripting"
	"github.com/vibeforge/engine/internal/system"
)

// engine is everything one scene run needs, wired in frame-phase order.
type engine struct {
	cfg         *config.Config
	log         *zap.Logger
	world       *ecs.World
	compiler    *scripting.Compiler
	manager     *scripting.Manager
	scripts     *system.ScriptSystem
	runner      *coresys.Runner
	db          *persist.DB
	repo        *persist.SceneRepo
	persistence *system.PersistenceSystem
	save        *persist.SaveFile
}

func newEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*engine, error) {
	world, err := ecs.NewWorld(ecs.Options{
		HotReloadComponents: cfg.World.HotReloadComponents,
		QueryMaxAge:         cfg.World.QueryMaxAge,
		MaxIDAttempts:       cfg.World.MaxIDAttempts,
	}, log.Named("ecs"))
	if err != nil {
		return nil, err
	}
	if err := component.RegisterBuiltins(world.Registry()); err != nil {
		return nil, err
	}

	buffer := mutation.NewBuffer()
	commands := mutation.NewCommands()
	bus := event.NewBus()
	prefabs := scene.NewLibrary(cfg.Scripting.PrefabsDir)
	opts := scripting.Options{
		FrameBudget:   cfg.Scripting.FrameBudget,
		CallStackSize: cfg.Scripting.CallStackSize,
		RegistrySize:  cfg.Scripting.RegistrySize,
		Prefabs:       prefabs,
	}
	var save *persist.SaveFile
	if cfg.Scripting.SavePath != "" {
		save, err = persist.OpenSaveFile(cfg.Scripting.SavePath, cfg.Scripting.SaveAutoFlush, log.Named("save"))
		if err != nil {
			return nil, err
		}
		opts.Save = save
	}
	compiler := scripting.NewCompiler(log.Named("compiler"))
	manager := scripting.NewManager(compiler, world, buffer, commands, bus, opts, log.Named("scripting"))

	input := system.NewInputSystem(nil)
	scripts := system.NewScriptSystem(world, manager, input, system.ScriptSystemOptions{
		ScriptsDir:  cfg.Scripting.ScriptsDir,
		HotReload:   cfg.Scripting.HotReload,
		FrameBudget: cfg.Scripting.FrameBudget,
	}, log.Named("scripts"))

	runner := coresys.NewRunner()
	runner.Register(input)
	runner.Register(system.NewEventDispatchSystem(bus, log.Named("events")))
	runner.Register(scripts)
	runner.Register(system.NewWriteBackSystem(world, buffer, commands, cfg.Scripting.ReservedPrefix, nil, prefabs, log.Named("writeback")))
	runner.Register(system.NewCleanupSystem(world, log.Named("cleanup"), scripts.EntityDestroyed))

	e := &engine{
		cfg:      cfg,
		log:      log,
		world:    world,
		compiler: compiler,
		manager:  manager,
		scripts:  scripts,
		runner:   runner,
		save:     save,
	}
	if cfg.Database.Enabled {
		if err := e.openDatabase(ctx); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *engine) openDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := persist.NewDB(ctx, e.cfg.Database, e.log.Named("db"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		db.Close()
		return fmt.Errorf("migrations: %w", err)
	}
	e.db = db
	e.repo = persist.NewSceneRepo(db)
	e.persistence = system.NewPersistenceSystem(e.world, e.repo, e.cfg.Database.SceneName,
		e.cfg.Database.AutosaveFrames, e.log.Named("persist"))
	e.runner.Register(e.persistence)
	return nil
}

func (e *engine) Close() {
	e.manager.ClearAll()
	if e.db != nil {
		e.db.Close()
	}
}

// compileScripts precompiles the scripts directory. A missing directory is
// not an error.
func (e *engine) compileScripts(ctx context.Context) ([]scripting.Result, error) {
	results, err := e.compiler.CompileFiles(ctx, e.cfg.Scripting.ScriptsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return results, err
}

// loadScene imports a scene file, or the configured scene from the
// database when path is empty. Returns the number of root entities.
func (e *engine) loadScene(ctx context.Context, path string) (int, error) {
	var doc *scene.Document
	var err error
	switch {
	case path != "":
		doc, err = scene.Load(path)
	case e.repo != nil:
		doc, err = e.repo.Load(ctx, e.cfg.Database.SceneName)
		if errors.Is(err, persist.ErrSceneNotFound) {
			return 0, nil
		}
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	roots, err := scene.Import(e.world, doc.Entities, 0)
	if err != nil {
		return 0, err
	}
	return len(roots), nil
}

// loop ticks the runner until ctx is cancelled or the frame limit is hit,
// then saves the scene one last time.
func (e *engine) loop(ctx context.Context) error {
	rate := e.cfg.Loop.TickRate
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.runner.Tick(rate)
			if limit := e.cfg.Loop.MaxFrames; limit > 0 && e.runner.Frames() >= uint64(limit) {
				e.log.Info("frame limit reached", zap.Uint64("frames", e.runner.Frames()))
				return e.shutdown()
			}
		case <-ctx.Done():
			e.log.Info("shutdown requested", zap.Uint64("frames", e.runner.Frames()))
			return e.shutdown()
		}
	}
}

func (e *engine) shutdown() error {
	if e.save != nil {
		if err := e.save.Flush(); err != nil {
			return fmt.Errorf("flush save data: %w", err)
		}
	}
	if e.persistence == nil {
		return nil
	}
	if err := e.persistence.SaveNow(); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}
