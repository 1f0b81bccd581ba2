package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"study-app/internal/app"
	"study-app/internal/cli"
	"study-app/internal/config"
	"study-app/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: load config:", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	verbose := flag.Bool("verbose", false, "log debug output to stderr")
	flag.Parse()
	cfg.DBPath = *dbPath

	// Production logging keeps the terminal free of debug lines.
	mode := "production"
	if *verbose {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer a.Close()

	err = cli.Run(ctx, os.Stdin, os.Stdout, cli.Config{
		Service: a.Service,
		Chat:    a.Completion,
		Backups: a.Backups,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
