package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/besra/killfeed/internal/config"
	"github.com/besra/killfeed/internal/index"
	"github.com/besra/killfeed/internal/prices"
	"github.com/besra/killfeed/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the persisted state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			idx, err := index.OpenFile(store.NewJSONFile(filepath.Join(cfg.DataDir, "kills_index.json")))
			if err != nil {
				return err
			}
			claimed, err := idx.Snapshot(context.Background())
			if err != nil {
				return err
			}

			cache, err := prices.NewCache(store.NewJSONFile(filepath.Join(cfg.DataDir, "prices.json")), cfg.PriceTTL())
			if err != nil {
				return err
			}

			fmt.Printf("data dir:        %s\n", cfg.DataDir)
			fmt.Printf("claimed refs:    %d\n", len(claimed))
			fmt.Printf("cached prices:   %d\n", cache.Len())
			fmt.Printf("price TTL:       %s\n", cfg.PriceTTL())
			fmt.Printf("poll interval:   %s\n", cfg.PollInterval())
			fmt.Printf("secondary feed:  enabled=%v every_n=%d pages=%d\n", cfg.ZKBEnable, cfg.ZKBEveryN, cfg.ZKBPages)
			return nil
		},
	}
}
