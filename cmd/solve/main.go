// Package main runs the deployment planner once from the command line and
// writes the resulting plan to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veilcraft/obscura/internal/logging"
	"github.com/veilcraft/obscura/internal/mission"
	"github.com/veilcraft/obscura/internal/optimization/de"
	"github.com/veilcraft/obscura/internal/report"
	"github.com/veilcraft/obscura/internal/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Scenario YAML file (empty = built-in defaults)")
	outputDir := flag.String("output", "", "Output directory for results")
	population := flag.Int("population", 0, "Population size (0 = scale with dimension)")
	maxIter := flag.Int("max-iterations", 800, "Maximum generations per threat")
	seed := flag.Uint64("seed", 0, "Random seed (0 = clock)")
	boundary := flag.String("boundary", "reflect", "Boundary rule: clip, reflect, reinitialize, midpoint")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *outputDir == "" {
		fmt.Fprintln(os.Stderr, "--output is required")
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{Level: *logLevel, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Fatal("failed to load scenario", map[string]interface{}{"error": err.Error()})
	}

	rule, err := de.ParseBoundaryRule(*boundary)
	if err != nil {
		logger.Fatal("invalid boundary rule", map[string]interface{}{"error": err.Error()})
	}

	opts := de.DefaultOptions()
	opts.PopulationSize = *population
	opts.MaxIterations = *maxIter
	opts.Seed = *seed
	opts.Boundary = rule

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	planner := mission.NewPlanner(sc, logger, opts)
	plan, err := planner.Plan(ctx)
	if err != nil {
		logger.Fatal("planning failed", map[string]interface{}{"error": err.Error()})
	}

	writer, err := report.NewWriter(*outputDir)
	if err != nil {
		logger.Fatal("failed to create output directory", map[string]interface{}{"error": err.Error()})
	}
	if err := writer.WriteScenario(sc); err != nil {
		logger.Fatal("failed to write scenario", map[string]interface{}{"error": err.Error()})
	}
	if err := writer.WritePlan(sc, plan); err != nil {
		logger.Fatal("failed to write plan", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("plan written", map[string]interface{}{
		"output":         writer.Dir(),
		"weighted_score": plan.WeightedScore,
		"threats":        len(plan.Threats),
		"elapsed":        time.Since(start).Round(time.Millisecond).String(),
	})
}

func loadScenario(path string) (*scenario.Scenario, error) {
	if path == "" {
		return scenario.Default()
	}
	return scenario.Load(path)
}
