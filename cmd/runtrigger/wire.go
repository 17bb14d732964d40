package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nneven/runtrigger/engine/trigger"
	"github.com/nneven/runtrigger/infra/entitlement"
	"github.com/nneven/runtrigger/infra/objectstore"
	"github.com/nneven/runtrigger/infra/postgres"
	"github.com/nneven/runtrigger/infra/redisq"
	"github.com/nneven/runtrigger/infra/tracing"
	"github.com/nneven/runtrigger/pkg/config"
)

// loadConfig layers defaults, an optional YAML file (--config), and the
// environment, the same precedence pkg/config.getDefaultManager uses.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	sources := []config.Source{config.NewDefaultProvider()}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	sources = append(sources, config.NewEnvProvider())
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// buildService wires every infra/* adapter into engine/trigger.Service
// per the Collaborators bundle it declares.
func buildService(ctx context.Context, cfg *config.Config) (*trigger.Service, func(), error) {
	store, err := postgres.NewStore(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	objStore, err := objectstore.New(ctx, &cfg.ObjectStore)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("connecting to object store: %w", err)
	}

	pool := store.Pool()
	runs := postgres.NewRunRepo(pool)
	redisClient := redisq.NewClient(&cfg.Redis)
	engine := redisq.NewEngine(redisClient)
	queueCache := redisq.NewQueueNameCache(redisClient)

	collaborators := &trigger.Collaborators{
		Environments: postgres.NewEnvironmentRepo(pool),
		Workers:      postgres.NewWorkerRepo(pool),
		Runs:         runs,
		Tags:         postgres.NewTagRepo(pool),
		Counters:     runs,
		Entitlement:  entitlement.New(&cfg.Entitlement),
		ObjectStore:  objStore,
		Events:       tracing.New(),
		Engine:       engine,
		QueueCache:   queueCache,
	}
	service := trigger.NewService(collaborators, trigger.Config{
		PayloadOffloadThresholdBytes: cfg.Limits.PayloadOffloadThresholdBytes,
		MasterQueue:                  cfg.Engine.MasterQueue,
		QueuePrefix:                  cfg.Engine.QueuePrefix,
		MaxTagsPerRun:                cfg.Limits.MaxTagsPerRun,
		MaxTaskTreeDepth:             cfg.Limits.MaxTaskTreeDepth,
	})

	cleanup := func() {
		store.Close()
		_ = redisClient.Close()
	}
	return service, cleanup, nil
}
