package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"gradebook/common/logger"
	"gradebook/common/metrics"
	"gradebook/internal/cli"
	"gradebook/internal/config"
	"gradebook/internal/db"
	"gradebook/internal/grading"
	"gradebook/internal/mark"
	"gradebook/internal/report"
	"gradebook/internal/store"
	"gradebook/internal/student"
	"gradebook/internal/subject"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, cli.Usage)
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return err
	}
	color.NoColor = color.NoColor || cfg.NoColor

	policy, err := grading.NewPolicy(cfg.PassThreshold)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database())
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := store.Migrate(ctx, database); err != nil {
		return err
	}

	m := metrics.NewMock()
	reports := report.NewService(
		store.New(
			student.NewRepository(database, m),
			subject.NewRepository(database, m),
			mark.NewRepository(database, m),
		),
		policy,
		logger.NewWithOptions(logger.Options{Level: "warn", Output: os.Stderr}),
	)

	return cli.NewRunner(reports, os.Stdout, cfg.TopLimit).Run(ctx, os.Args[1:])
}
