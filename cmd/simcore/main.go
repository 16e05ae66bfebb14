// Command simcore is a minimal scene runner exercising the simulation core
// end to end: load a YAML scene, step it for a fixed duration, and report
// the resulting minimum pairwise gap. Grounded on san-kum-dynsim's
// cmd/dynsim root-command-plus-flags structure, trimmed to the one
// operation this core's Non-goals call "ambient CLI plumbing, not a scope
// expansion" — no GUI, no run history, no plotting.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nudtxiong/rbdcore/simconfig"
	"github.com/nudtxiong/rbdcore/telemetry"
	"github.com/spf13/cobra"
)

var (
	sceneFile        string
	durationOverride float64
	telemetryDir     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simcore",
		Short: "rigid-multibody contact dynamics scene runner",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "load a scene and step it for its configured (or overridden) duration",
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&sceneFile, "scene", "", "path to a scene YAML file (required)")
	runCmd.Flags().Float64Var(&durationOverride, "duration", 0, "override the scene's configured duration, in seconds")
	runCmd.Flags().StringVar(&telemetryDir, "telemetry", "", "directory to write energy.dat/cvio.dat into (optional)")
	_ = runCmd.MarkFlagRequired("scene")

	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := simconfig.Load(sceneFile)
	if err != nil {
		return fmt.Errorf("loading scene: %w", err)
	}

	duration := cfg.Duration
	if durationOverride > 0 {
		duration = durationOverride
	}

	s, err := simconfig.BuildScene(cfg)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	var rec *telemetry.Recorder
	if telemetryDir != "" {
		rec, err = telemetry.OpenRecorder(telemetryDir)
		if err != nil {
			return fmt.Errorf("opening telemetry: %w", err)
		}
		defer rec.Close()
	}

	ctx := context.Background()
	steps := int(duration / cfg.Dt)
	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := s.Step(ctx, cfg.Dt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if rec != nil {
			if err := rec.Sample(s.Time(), s.KineticEnergy(), s.MinGap()); err != nil {
				return fmt.Errorf("recording telemetry: %w", err)
			}
		}
	}

	fmt.Printf("ran %d steps (%.3fs simulated) in %v\n", steps, duration, time.Since(start))
	fmt.Printf("final min gap: %.6g\n", s.MinGap())
	return nil
}
