package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/besra/killfeed/internal/archive"
	"github.com/besra/killfeed/internal/config"
	"github.com/besra/killfeed/internal/esi"
	"github.com/besra/killfeed/internal/httpclient"
	"github.com/besra/killfeed/internal/index"
	"github.com/besra/killfeed/internal/notify"
	"github.com/besra/killfeed/internal/ops"
	"github.com/besra/killfeed/internal/prices"
	"github.com/besra/killfeed/internal/scheduler"
	"github.com/besra/killfeed/internal/store"
	"github.com/besra/killfeed/internal/zkb"
)

func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the ingestion engine",
		Long:  "Starts the poll and cleanup loops and runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log notifications instead of posting to the webhook")
	return cmd
}

func runEngine(dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.LogLevel)

	if cfg.CorporationID == 0 {
		return fmt.Errorf("CORPORATION_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// claim ledger: Redis when configured, the JSON file ledger otherwise
	var idx index.Index
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		idx = index.NewRedis(rdb, "")
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis claim backend")
	} else {
		fileIdx, err := index.OpenFile(store.NewJSONFile(filepath.Join(cfg.DataDir, "kills_index.json")))
		if err != nil {
			return err
		}
		idx = fileIdx
	}

	esiClient := esi.NewClient(esi.Credentials{
		ClientID:     cfg.EVEClientID,
		ClientSecret: cfg.EVEClientSecret,
		RefreshToken: cfg.EVERefreshToken,
	}, esi.WithCompatDate(cfg.CompatDate))

	priceCache, err := prices.NewCache(store.NewJSONFile(filepath.Join(cfg.DataDir, "prices.json")), cfg.PriceTTL())
	if err != nil {
		return err
	}
	pricing := prices.NewService(priceCache, func(ctx context.Context, typeID int64) (float64, error) {
		return esiClient.FetchTypePrice(ctx, cfg.MarketRegionID, typeID)
	})

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.DiscordWebhookURL != "" && !dryRun {
		notifier = notify.NewWebhook(httpclient.New(httpclient.DefaultConfig()), cfg.DiscordWebhookURL)
	}

	deps := scheduler.Deps{
		ESI:      esiClient,
		Index:    idx,
		Pricing:  pricing,
		Notifier: notifier,
	}

	if cfg.ZKBEnable {
		zkbClient := zkb.NewClient()
		deps.Secondary = zkbClient
		deps.Merger = zkb.NewMerger(zkbClient, cfg.CorporationID, cfg.ZKBEveryN, cfg.ZKBPages)
	}
	if cfg.ZKBWSEnable {
		deps.Websocket = zkb.NewListener("", cfg.CorporationID)
	}
	if cfg.DatabaseURL != "" {
		arch, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer arch.Close()
		deps.Archive = arch
		log.Info().Msg("Killmail archive enabled")
	}

	if cfg.OpsAddr != "" {
		srv := ops.NewServer(cfg.OpsAddr)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Ops server failed")
			}
		}()
	}

	engine := scheduler.New(scheduler.Config{
		CorporationID:   cfg.CorporationID,
		PollInterval:    cfg.PollInterval(),
		CleanupInterval: cfg.CleanupInterval(),
		SecondaryPages:  cfg.ZKBPages,
	}, deps)

	log.Info().
		Int64("corporation_id", cfg.CorporationID).
		Dur("poll_interval", cfg.PollInterval()).
		Dur("cleanup_interval", cfg.CleanupInterval()).
		Bool("zkb", cfg.ZKBEnable).
		Msg("Engine starting")

	engine.Run(ctx)
	log.Info().Msg("Engine stopped")
	return nil
}
