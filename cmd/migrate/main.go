package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/naguara/naguara-pos/internal/app"
	"github.com/naguara/naguara-pos/internal/platform/db"
	"github.com/naguara/naguara-pos/internal/platform/migrate"
)

func main() {
	to := flag.String("to", "", "migrate up or down to this version")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-to VERSION] [up|down|status|redo|reset|version]")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB := migrate.OpenDB(pool)
	defer sqlDB.Close()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch {
	case *to != "":
		err = migrate.MigrateToVersion(ctx, sqlDB, *to)
	case command == "up":
		err = migrate.Up(ctx, sqlDB)
	default:
		err = migrate.Run(ctx, sqlDB, command, flag.Args()[1:]...)
	}
	if err != nil {
		logger.Error("migrate", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrate done", slog.String("command", command))
}
