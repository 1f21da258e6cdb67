// Command landd hosts the land-ownership ledger: it restores the registry
// from its snapshot database, keeps it flushed in the background, and
// offers a local operator console on stdin. Network transport is owned by
// embedding callers, not this daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/virtualand/landgrid/internal/district"
	"github.com/virtualand/landgrid/internal/economy"
	"github.com/virtualand/landgrid/internal/persistence"
	"github.com/virtualand/landgrid/internal/pricing"
	"github.com/virtualand/landgrid/internal/registry"
	"github.com/virtualand/landgrid/internal/static"
)

type config struct {
	DBPath        string     `env:"LANDD_DB" envDefault:"data/ledger.db"`
	DistrictsPath string     `env:"LANDD_DISTRICTS"`
	BuildingsPath string     `env:"LANDD_BUILDINGS"`
	PricingSeed   int64      `env:"LANDD_PRICING_SEED" envDefault:"42"`
	FlushPerSec   float64    `env:"LANDD_FLUSH_PER_SEC" envDefault:"4"`
	LogLevel      slog.Level `env:"LANDD_LOG_LEVEL" envDefault:"INFO"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// ── Static reference data ─────────────────────────────────────────
	table := district.Default()
	if cfg.DistrictsPath != "" {
		t, err := district.LoadTable(cfg.DistrictsPath)
		if err != nil {
			slog.Error("failed to load district table", "error", err)
			os.Exit(1)
		}
		table = t
	}

	var buildings *static.Index
	if cfg.BuildingsPath != "" {
		idx, err := static.LoadIndex(cfg.BuildingsPath, table)
		if err != nil {
			slog.Error("failed to load building index", "error", err)
			os.Exit(1)
		}
		buildings = idx
	} else {
		idx, err := static.NewIndex(nil, table)
		if err != nil {
			slog.Error("failed to build empty building index", "error", err)
			os.Exit(1)
		}
		buildings = idx
	}
	slog.Info("reference data loaded",
		"districts", len(table.All()),
		"buildings", len(buildings.All()),
	)

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Registry ──────────────────────────────────────────────────────
	prices := pricing.New(cfg.PricingSeed)
	reg := registry.New(prices.CostOf)

	snap, err := db.LoadSnapshot()
	if err != nil {
		slog.Error("failed to load snapshot", "error", err)
		os.Exit(1)
	}
	reg.Restore(snap)
	slog.Info("registry restored",
		"owned_parcels", len(snap.Ownership),
		"listings", len(snap.Listings),
		"events", len(snap.Events),
	)

	// ── Background flushing & event feed ──────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flusher := persistence.NewFlusher(db, reg, cfg.FlushPerSec)
	go flusher.Run(ctx)
	go func() {
		for err := range flusher.Errors() {
			slog.Warn("background flush error", "error", err)
		}
	}()

	feed, unsubscribe := reg.Subscribe()
	defer unsubscribe()
	go func() {
		for e := range feed {
			slog.Info("ledger event",
				"type", e.Type,
				"parcel", e.ParcelID,
				"district", e.DistrictID,
				"actor", e.Actor,
				"counterparty", e.Counterparty,
				"price", e.Price,
			)
		}
	}()

	engine := economy.NewEngine(table, buildings)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
		os.Stdin.Close()
	}()

	fmt.Println("landgrid ledger console — type 'help' for commands")
	runConsole(consoleDeps{
		reg:     reg,
		table:   table,
		engine:  engine,
		prices:  prices,
		visited: make(map[int]bool),
	})

	cancel()
	slog.Info("final save...")
	if err := flusher.Flush(); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Ledger saved. Goodbye.")
}
