package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibeforge/engine/internal/component"
	"github.com/vibeforge/engine/internal/core/ecs"
	"github.com/vibeforge/engine/internal/persist"
	"github.com/vibeforge/engine/internal/scene"
)

const version = "v0.1.0"

func newRunCmd(load loaderFunc) *cobra.Command {
	var frames int
	cmd := &cobra.Command{
		Use:   "run [scene-file]",
		Short: "Run the frame loop over a scene file or the stored scene",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if cmd.Flags().Changed("frames") {
				cfg.Loop.MaxFrames = frames
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printBanner(version)
			printSection("Startup")
			e, err := newEngine(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.db != nil {
				printOK("PostgreSQL connected, migrations applied")
			}

			results, err := e.compileScripts(ctx)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
					log.Error("script compile failed", zap.String("script", r.ScriptID), zap.Error(r.Err))
				}
			}
			printStat("Scripts compiled", len(results)-failed)
			if failed > 0 {
				printStat("Scripts failed", failed)
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			roots, err := e.loadScene(ctx, path)
			if err != nil {
				return fmt.Errorf("load scene: %w", err)
			}
			printStat("Scene roots", roots)
			printStat("Entities", e.world.Entities().Count())
			fmt.Println()

			printSection("Running")
			printReady(fmt.Sprintf("frame loop started (tick: %s)", cfg.Loop.TickRate))
			fmt.Println()
			return e.loop(ctx)
		},
	}
	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many frames (0 = until interrupted)")
	return cmd
}

func newCheckCmd(load loaderFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check [scene-file]",
		Short: "Validate a scene and compile every script without running frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			cfg.Database.Enabled = false
			cfg.Scripting.SavePath = ""

			e, err := newEngine(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer e.Close()

			printSection("Scripts")
			results, err := e.compileScripts(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Success {
					printOK(r.ScriptID)
					continue
				}
				failed++
				printFail(fmt.Sprintf("%s: %v", r.ScriptID, r.Err))
			}

			if len(args) == 1 {
				printSection("Scene")
				roots, err := e.loadScene(cmd.Context(), args[0])
				if err != nil {
					printFail(err.Error())
					return err
				}
				printStat("Scene roots", roots)
				printStat("Entities", e.world.Entities().Count())
				failed += checkInlineScripts(e)
			}
			if failed > 0 {
				return fmt.Errorf("%d script(s) failed to compile", failed)
			}
			return nil
		},
	}
}

// checkInlineScripts compiles the inline sources carried by Script components.
func checkInlineScripts(e *engine) int {
	reg := e.world.Registry()
	failed := 0
	for _, id := range reg.EntitiesWith(component.ScriptType) {
		sc, ok := ecs.Get[component.Script](reg, id, component.ScriptType)
		if !ok || sc.Source == "" {
			continue
		}
		if res := e.compiler.Compile(sc.Source, sc.ScriptID); !res.Success {
			failed++
			printFail(fmt.Sprintf("%s (inline): %v", sc.ScriptID, res.Err))
		}
	}
	return failed
}

func newExportCmd(load loaderFunc) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a stored scene to a .json or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()
			if name == "" {
				name = cfg.Database.SceneName
			}
			db, err := persist.NewDB(cmd.Context(), cfg.Database, log.Named("db"))
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			doc, err := persist.NewSceneRepo(db).Load(cmd.Context(), name)
			if err != nil {
				return err
			}
			if err := scene.Save(args[0], doc); err != nil {
				return err
			}
			printOK(fmt.Sprintf("scene %q written to %s", name, args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "scene", "", "stored scene name (default database.scene_name)")
	return cmd
}
