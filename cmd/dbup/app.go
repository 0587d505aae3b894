package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/dbup/internal/config"
	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/dialect"
	"github.com/example/dbup/internal/journal"
	"github.com/example/dbup/internal/logging"
	"github.com/example/dbup/internal/providers"
	"github.com/example/dbup/internal/script"
	"github.com/example/dbup/internal/upgrade"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	engine *upgrade.Engine
	db     *sql.DB
	logger *slog.Logger
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp loads the configuration and wires the engine against the target.
func openApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logOut, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	d, err := dialect.Lookup(cfg.Driver)
	if err != nil {
		return nil, err
	}
	mode, err := database.ParseTransactionMode(cfg.Transaction)
	if err != nil {
		return nil, err
	}
	hasher, err := script.NewHasher(cfg.Hash)
	if err != nil {
		return nil, err
	}
	comparer, err := script.NewComparer(cfg.NameComparison)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, d, cfg.DatabaseOptions())
	if err != nil {
		return nil, err
	}
	manager := database.NewManager(db, mode, logger)

	var j upgrade.Journal = journal.Null{}
	if !cfg.Journal.Disabled {
		j = journal.NewTable(manager, d, journal.TableOptions{
			Schema: cfg.Journal.Schema,
			Table:  cfg.Journal.Table,
			Hasher: hasher,
			Logger: logger,
		})
	}

	sources := make([]upgrade.ScriptProvider, 0, len(cfg.Scripts))
	for _, src := range cfg.Scripts {
		sources = append(sources, providers.NewFileSystem(src.Path, providers.FileSystemOptions{
			IncludeSubDirectories: src.IncludeSubdirectories,
			Pattern:               src.Pattern,
		}, src.ScriptOptions()))
	}

	engine, err := upgrade.NewEngine(upgrade.Config{
		Providers:   sources,
		Connections: manager,
		Executor:    database.NewExecutor(manager, d, cfg.Journal.Schema, logger),
		Journal:     j,
		Hasher:      hasher,
		Comparer:    comparer,
		Variables:   cfg.Variables,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure upgrade engine: %w", err)
	}

	logger.Debug("configuration loaded", "driver", d.Name(), "transaction", mode.String(), "sources", len(sources))
	return &app{engine: engine, db: db, logger: logger}, nil
}
