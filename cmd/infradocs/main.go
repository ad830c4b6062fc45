// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/infradocs/config"
	"github.com/poiesic/infradocs/core"
	"github.com/poiesic/infradocs/history"
	"github.com/poiesic/infradocs/pipeline"
	"github.com/poiesic/infradocs/schema"
	"github.com/poiesic/infradocs/tagging/llm"
)

func main() {
	app := &cli.App{
		Name:  "infradocs",
		Usage: "Infrastructure documentation extraction pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the run configuration file",
				Value:   "config.yml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "collect",
				Usage:  "Run the configured collector command to refresh the input directory",
				Action: collectCommand,
			},
			{
				Name:   "process",
				Usage:  "Run the extraction pipeline on previously collected data",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "validate",
						Usage: "Validate the produced documents against the schemas",
					},
					&cli.BoolFlag{
						Name:  "strict-validate",
						Usage: "Exit non-zero when validation reports errors (implies --validate)",
					},
				},
			},
			{
				Name:   "full-pipeline",
				Usage:  "Collect and then process in one invocation",
				Action: fullPipelineCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Persist per-entity intermediate artifacts",
					},
					&cli.BoolFlag{
						Name:  "services-only",
						Usage: "Process only container and service entities",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Report the last run's metadata",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "runs",
						Usage: "Number of recent runs to list",
						Value: 1,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configured file, falling back to defaults when the
// default path does not exist and was not explicitly requested.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) && !c.IsSet("config") {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

func collectCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return runCollector(c.Context, cfg)
}

func runCollector(ctx context.Context, cfg *config.Config) error {
	if cfg.CollectorCommand == "" {
		return fmt.Errorf("no collector_command configured")
	}

	slog.Info("running collector", "command", cfg.CollectorCommand)

	cmd := exec.CommandContext(ctx, "sh", "-c", cfg.CollectorCommand)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "INFRADOCS_INPUT_DIR="+cfg.InputDirectory)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("collector failed: %w", err)
	}
	return nil
}

func processCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return runPipeline(c.Context, cfg, c.Bool("validate") || c.Bool("strict-validate"), c.Bool("strict-validate"))
}

func fullPipelineCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if c.Bool("debug") {
		cfg.SaveIntermediate = true
	}
	if c.Bool("services-only") {
		for _, name := range []string{"host", "network"} {
			if p, ok := cfg.Processors[name]; ok {
				p.Enabled = false
				cfg.Processors[name] = p
			}
		}
	}

	if err := runCollector(c.Context, cfg); err != nil {
		return err
	}
	return runPipeline(c.Context, cfg, false, false)
}

func runPipeline(ctx context.Context, cfg *config.Config, validate, strict bool) error {
	var opts []pipeline.Option

	if cfg.LLMEnabled() {
		backend, err := llm.NewTagger(cfg.TaggingConfig())
		if err != nil {
			return fmt.Errorf("creating tagging backend: %w", err)
		}
		opts = append(opts, pipeline.WithBackend(backend))
	}

	store, err := history.Open(cfg.HistoryDirectory, false)
	if err != nil {
		slog.Warn("run history unavailable", "err", err)
	} else {
		defer store.Close()
		opts = append(opts, pipeline.WithHistoryStore(store))
	}

	orchestrator, err := pipeline.NewOrchestrator(cfg, opts...)
	if err != nil {
		return err
	}
	defer orchestrator.Release()

	meta, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Run %s: %d documents, %d skipped, output %s\n",
		meta.RunID, meta.EntitiesCount, meta.SkippedEntities, meta.OutputDirectory)
	if meta.FallbackUsed {
		fmt.Fprintln(os.Stderr, "Tagging degraded to rule fallback for at least one batch")
	}

	if !validate {
		return nil
	}
	return validateRun(cfg, meta.OutputDirectory, strict)
}

func validateRun(cfg *config.Config, runDir string, strict bool) error {
	validator, err := schema.NewValidator(cfg.SchemaDirectory)
	if err != nil {
		return err
	}

	docs, err := readRunDocuments(runDir)
	if err != nil {
		return err
	}

	report := validator.Validate(docs)
	fmt.Fprintf(os.Stderr, "Validation: %s\n", report.Summary())
	for _, issue := range report.Errors {
		fmt.Fprintf(os.Stderr, "  error: %s %s: %s\n", issue.DocumentID, issue.Field, issue.Message)
	}
	for _, issue := range report.Warnings {
		fmt.Fprintf(os.Stderr, "  warning: %s %s: %s\n", issue.DocumentID, issue.Field, issue.Message)
	}

	if strict && !report.Valid() {
		return cli.Exit(fmt.Sprintf("validation failed: %s", report.Summary()), 2)
	}
	return nil
}

func readRunDocuments(runDir string) ([]*core.Document, error) {
	paths, err := filepath.Glob(filepath.Join(runDir, "*.jsonl"))
	if err != nil {
		return nil, err
	}

	var docs []*core.Document
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			doc := &core.Document{}
			if err := json.Unmarshal(scanner.Bytes(), doc); err != nil {
				f.Close()
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			docs = append(docs, doc)
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	return docs, nil
}

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.HistoryDirectory, false)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	runs, err := store.List(c.Int("runs"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	for _, meta := range runs {
		printRun(meta)
	}
	return nil
}

func printRun(meta *core.RunMetadata) {
	fmt.Printf("Run %s at %s\n", meta.RunID, meta.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  documents:     %d (%d skipped)\n", meta.EntitiesCount, meta.SkippedEntities)
	fmt.Printf("  entity types:  %s\n", strings.Join(meta.EntityTypes, ", "))
	fmt.Printf("  llm enabled:   %t\n", meta.LLMEnabled)
	fmt.Printf("  parallel:      %t\n", meta.ParallelProcessing)
	fmt.Printf("  fallback used: %t\n", meta.FallbackUsed)
	fmt.Printf("  elapsed:       %dms\n", meta.ElapsedMillis)
	fmt.Printf("  output:        %s\n", meta.OutputDirectory)
	if meta.SnapshotDigest != "" {
		fmt.Printf("  snapshot:      %s\n", meta.SnapshotDigest)
	}
}
