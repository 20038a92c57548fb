package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/tickflow/internal/config"
	"github.com/rxtech-lab/tickflow/internal/feed"
	"github.com/rxtech-lab/tickflow/internal/feed/duckdb"
	"github.com/rxtech-lab/tickflow/internal/feed/series"
	"github.com/rxtech-lab/tickflow/internal/logger"
	"github.com/rxtech-lab/tickflow/internal/pubsub"
	"github.com/rxtech-lab/tickflow/internal/recorder"
	"github.com/rxtech-lab/tickflow/internal/types"
	"github.com/rxtech-lab/tickflow/internal/version"
)

const (
	sourceCSV    = "csv"
	sourceDuckDB = "duckdb"
)

// progressSubscriber advances the bar once per distinct event timestamp, so
// the bar tracks replay ticks rather than individual events.
type progressSubscriber struct {
	bar  *progressbar.ProgressBar
	last time.Time
}

func (p *progressSubscriber) advance(t time.Time) error {
	if t.Equal(p.last) {
		return nil
	}

	p.last = t

	return p.bar.Add(1)
}

func (p *progressSubscriber) OnCandle(candle types.Candle) error {
	return p.advance(candle.Time)
}

func (p *progressSubscriber) OnQuote(quote types.Quote) error {
	return p.advance(quote.Time)
}

func (p *progressSubscriber) OnLevel2(snapshot types.DepthSnapshot) error {
	return p.advance(snapshot.Time)
}

// loadSet reads the three series through the selected backend.
func loadSet(cfg *config.Config, source string, appLogger *logger.Logger) (*series.Set, error) {
	switch source {
	case sourceCSV:
		return series.Load(cfg.Feed.Source, appLogger)
	case sourceDuckDB:
		db, err := duckdb.NewSource(appLogger)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		return db.Load(cfg.Feed.Source)
	default:
		return nil, fmt.Errorf("unknown source backend %q (expected %s or %s)", source, sourceCSV, sourceDuckDB)
	}
}

// replayAction loads the configured series, replays them through the
// registry, and writes recorded events to the result directory.
func replayAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.ParseFile(cmd.String("config"))
	if err != nil {
		return err
	}

	if results := cmd.String("results"); results != "" {
		cfg.ResultDir = results
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	set, err := loadSet(cfg, cmd.String("source"), appLogger)
	if err != nil {
		return err
	}

	set = set.Window(cfg.Feed.StartTime, cfg.Feed.EndTime)

	registry := pubsub.NewFeedRegistry(appLogger)
	replayFeed := feed.New(set, registry, appLogger)

	rec, err := recorder.NewRecorder(appLogger)
	if err != nil {
		return err
	}
	defer rec.Close()

	replayFeed.Subscribe(types.AnyAsset(), rec)

	ticks := replayFeed.Ticks()
	bar := progressbar.Default(int64(len(ticks)))
	bar.Describe(fmt.Sprintf("Replaying %s", filepath.Base(cmd.String("config"))))
	replayFeed.Subscribe(types.AnyAsset(), &progressSubscriber{bar: bar})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := replayFeed.Run(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ResultDir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	if err := rec.Write(cfg.ResultDir); err != nil {
		return err
	}

	log.Printf("Replayed %d ticks (%d quotes, %d candles, %d snapshots; %d rows skipped, %d subscriber errors). Results in %s",
		stats.Ticks, stats.Quotes, stats.Candles, stats.Snapshots,
		stats.SkippedRows, stats.SubscriberErrors, cfg.ResultDir)

	return nil
}

// schemaAction writes the JSON schema and a sample config next to each other
// so editors can validate replay configs.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Default()

	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	outDir := cmd.String("out")
	schemaName := "tickflow-replay-config.json"
	schemaPath := filepath.Join(outDir, schemaName)
	sampleConfigPath := filepath.Join(outDir, "tickflow-replay-config.yaml")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	if _, err := os.Stat(sampleConfigPath); os.IsNotExist(err) {
		yamlBytes, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
		}

		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)
		if err := os.WriteFile(sampleConfigPath, yamlBytes, 0644); err != nil {
			return fmt.Errorf("failed to write sample config to file: %w", err)
		}

		log.Printf("Sample config successfully generated at %s", sampleConfigPath)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "tickflow",
		Usage:   "Replay recorded market data through feed subscribers",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "replay",
				Usage: "Run a replay from recorded candle, quote and depth series",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the replay YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   fmt.Sprintf("Series backend to load with (%s or %s)", sourceCSV, sourceDuckDB),
						Value:   sourceCSV,
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Override the result directory from the config",
					},
				},
				Action: replayAction,
			},
			{
				Name:  "schema",
				Usage: "Generate the JSON schema and a sample replay config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory for the schema and sample config",
						Value:   "config",
					},
				},
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
