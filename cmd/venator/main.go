package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/app"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

var (
	configPath  = flag.String("config", "", "Configuration file path")
	query       = flag.String("query", "", "Search query (role keywords for jobs, company for people)")
	location    = flag.String("location", "", "Job location filter (overrides config default)")
	sources     = flag.String("sources", "", "Comma-separated source names (default: all configured)")
	quota       = flag.Int("quota", 0, "Record quota for this acquisition (overrides config default)")
	people      = flag.Bool("people", false, "Search people instead of jobs")
	company     = flag.String("company", "", "Company filter for people searches")
	school      = flag.String("school", "", "School filter for people searches")
	attended    = flag.Bool("attended", false, "Run the browser visibly so a second-factor prompt can be approved")
	daemon      = flag.Bool("daemon", false, "Run the background maintenance scheduler until interrupted")
	showVersion = flag.Bool("version", false, "Print version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Venator version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence: load config, initialize logger, print banner.
	path := *configPath
	if path == "" {
		if _, err := os.Stat("venator.toml"); err == nil {
			path = "venator.toml"
		}
	}

	config, err := common.LoadFromFile(path)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", path).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *daemon {
		runDaemon(ctx, application, logger)
		return
	}

	if err := runAcquire(ctx, application, config); err != nil {
		logger.Fatal().Err(err).Msg("Acquisition failed")
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, application *app.App, logger arbor.ILogger) {
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start background services")
		os.Exit(1)
	}

	logger.Info().Msg("Running - Press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")
}

func runAcquire(ctx context.Context, application *app.App, config *common.Config) error {
	kind := models.RecordKindJob
	if *people {
		kind = models.RecordKindPerson
	}

	req := models.AcquireRequest{
		Kind:  kind,
		Query: *query,
		Filters: models.SearchFilters{
			Location: *location,
			Company:  *company,
			School:   *school,
		},
		Quota:    *quota,
		Headless: config.Browser.Headless && !*attended,
	}
	if *sources != "" {
		for _, name := range strings.Split(*sources, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Sources = append(req.Sources, name)
			}
		}
	}

	records, err := application.Acquire(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
