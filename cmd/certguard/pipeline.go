package main

import (
	"context"
	"fmt"
	"log/slog"

	"certguard/internal/credential/models"
	"certguard/internal/credential/store"
	"certguard/internal/extraction"
	"certguard/internal/ledger"
	"certguard/internal/platform/config"
)

// pipeline holds the components shared by serve and verify.
type pipeline struct {
	records  *store.InMemoryStore
	provider *extraction.Provider
	ledger   *ledger.Aggregator
}

func buildPipeline(ctx context.Context, cfg config.Config, log *slog.Logger) (*pipeline, error) {
	seed, err := loadSeed(cfg.Data.SeedFile)
	if err != nil {
		return nil, err
	}
	records := store.NewInMemoryStore()
	if err := records.Load(ctx, seed); err != nil {
		return nil, fmt.Errorf("failed to load seed records: %w", err)
	}

	provider, err := buildProvider(cfg.Data)
	if err != nil {
		return nil, err
	}

	log.Info("pipeline ready",
		"records", records.Len(),
		"rules", len(provider.Rules()),
		"fallback", provider.FallbackName(),
	)
	return &pipeline{
		records:  records,
		provider: provider,
		ledger:   ledger.NewAggregator(cfg.Data.LedgerCapacity),
	}, nil
}

func loadSeed(path string) ([]models.CredentialRecord, error) {
	if path == "" {
		return store.DefaultSeed()
	}
	seed, err := store.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}
	return seed, nil
}

func buildProvider(data config.Data) (*extraction.Provider, error) {
	var (
		rules []extraction.Rule
		err   error
	)
	if data.RulesFile == "" {
		rules, err = extraction.DefaultRules()
	} else {
		rules, err = extraction.LoadRulesFile(data.RulesFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction rules: %w", err)
	}

	fallback, err := extraction.NewFallback(data.Fallback, nil)
	if err != nil {
		return nil, err
	}
	return extraction.NewProvider(rules, extraction.WithFallback(fallback)), nil
}
