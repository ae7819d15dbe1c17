// Package main provides the planner binary: it loads a content catalog
// and a goal file, plans a character build, and emits the result as YAML.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/avamatic/fnv-planner/internal/config"
	"github.com/avamatic/fnv-planner/internal/game/build"
	"github.com/avamatic/fnv-planner/internal/game/character"
	"github.com/avamatic/fnv-planner/internal/game/content"
	"github.com/avamatic/fnv-planner/internal/game/formula"
	"github.com/avamatic/fnv-planner/internal/game/plan"
	"github.com/avamatic/fnv-planner/internal/game/requirement"
	"github.com/avamatic/fnv-planner/internal/observability"
	"github.com/avamatic/fnv-planner/internal/scripting"
	"github.com/avamatic/fnv-planner/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	goalPath := flag.String("goal", "", "path to goal specification YAML file")
	outPath := flag.String("out", "", "path to write the plan result; empty = stdout")
	saveName := flag.String("save", "", "persist the run under this name (requires database.enabled)")
	flag.Parse()

	if *goalPath == "" {
		log.Fatal("missing required -goal flag")
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	catalogStart := time.Now()
	catalog, err := content.LoadDirectory(cfg.Content.PackDir)
	if err != nil {
		logger.Fatal("loading content packs", zap.Error(err))
	}
	logger.Info("content catalog loaded",
		zap.String("pack_dir", cfg.Content.PackDir),
		zap.Int("perks", len(catalog.Perks())),
		zap.Int("items", len(catalog.Items())),
		zap.Int("books", len(catalog.Books())),
		zap.Strings("constant_fallbacks", catalog.Constants().Fallbacks()),
		zap.Duration("elapsed", time.Since(catalogStart)))

	formulas, err := formula.NewEngine(catalog.Constants())
	if err != nil {
		logger.Fatal("building formula engine", zap.Error(err))
	}

	graphOpts := []requirement.Option{
		requirement.WithPolicy(requirement.Policy(cfg.Content.RawConditionPolicy)),
	}
	if cfg.Content.ScriptDir != "" {
		host := scripting.NewConditionHost(logger, scripting.DefaultInstructionLimit)
		defer host.Close()
		if err := host.LoadDirectory(cfg.Content.ScriptDir); err != nil {
			logger.Fatal("loading condition scripts", zap.Error(err))
		}
		graphOpts = append(graphOpts, requirement.WithRawEvaluator(host))
		logger.Info("condition scripts loaded", zap.String("script_dir", cfg.Content.ScriptDir))
	}
	graph, err := requirement.NewGraph(catalog, graphOpts...)
	if err != nil {
		logger.Fatal("building requirement graph", zap.Error(err))
	}

	goalRaw, err := os.ReadFile(*goalPath)
	if err != nil {
		logger.Fatal("reading goal file", zap.Error(err))
	}
	var goal plan.GoalSpec
	if err := yaml.Unmarshal(goalRaw, &goal); err != nil {
		logger.Fatal("parsing goal file", zap.Error(err))
	}

	planner := plan.NewPlanner(catalog, formulas, graph, rulesFor(cfg.Rules), logger)
	planStart := time.Now()
	result, err := planner.Plan(goal)
	if err != nil {
		logger.Fatal("planning failed", zap.Error(err))
	}
	logger.Info("plan complete",
		zap.Bool("success", result.Success),
		zap.Int("target_level", result.TargetLevel),
		zap.Duration("elapsed", time.Since(planStart)))

	out, err := yaml.Marshal(result)
	if err != nil {
		logger.Fatal("encoding result", zap.Error(err))
	}
	if *outPath == "" {
		fmt.Print(string(out))
	} else if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}

	if *saveName != "" {
		if !cfg.Database.Enabled {
			logger.Fatal("-save requires database.enabled")
		}
		if err := persist(ctx, cfg, logger, *saveName, &goal, result); err != nil {
			logger.Fatal("persisting run", zap.Error(err))
		}
	}

	logger.Info("done", zap.Duration("elapsed", time.Since(start)))
	if !result.Success {
		os.Exit(1)
	}
}

// rulesFor converts the config rule knobs into the engine rule set.
func rulesFor(r config.RulesConfig) build.Config {
	return build.Config{
		PerkInterval:        r.PerkInterval,
		SkillCap:            r.SkillCap,
		AttributeBudget:     r.AttributeBudget,
		AttributeMin:        r.AttributeMin,
		AttributeMax:        r.AttributeMax,
		TagCount:            r.TagCount,
		MaxTraits:           r.MaxTraits,
		SkillPointCarryover: r.SkillPointCarryover,
		IncludeBigGuns:      r.IncludeBigGuns,
		BigGunsGoverning:    character.Strength,
	}
}

// persist stores the goal and result as one named planner run.
func persist(ctx context.Context, cfg config.Config, logger *zap.Logger, name string, goal *plan.GoalSpec, result *plan.Result) error {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewPlanRepository(pool.DB())
	saved, err := repo.Create(ctx, name, goal, result)
	if err != nil {
		return err
	}
	logger.Info("run persisted",
		zap.String("name", name),
		zap.String("id", saved.ID.String()))
	return nil
}
