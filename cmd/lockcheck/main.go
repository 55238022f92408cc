package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"locstash/internal/config"
	"locstash/internal/storage"
)

// lockcheck [flags] [ITERATIONS [SEED]] hammers an in-memory store with
// random operations until ITERATIONS steps are done or it is interrupted
func main() {
	conf, err := config.NewConfig(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	iterations := 0
	seed := time.Now().UnixNano()
	if len(conf.Args) > 0 {
		if iterations, err = strconv.Atoi(conf.Args[0]); err != nil {
			log.Fatalf("iterations %q: %v", conf.Args[0], err)
		}
	}
	if len(conf.Args) > 1 {
		if seed, err = strconv.ParseInt(conf.Args[1], 10, 64); err != nil {
			log.Fatalf("seed %q: %v", conf.Args[1], err)
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	if !conf.Debug {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}
	logger = logger.With(zap.String("session", uuid.New().String()))
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	unit := storage.NewLogUnit(logger)
	dev := storage.Chain(storage.NewMemory(), storage.NewCommitChain(unit.CommitMiddleware))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	c, err := NewChecker(conf, dev, seed, os.Stdout, logger)
	if err != nil {
		sugar.Fatalw("checker", "err", err)
	}
	sugar.Infow("start", "iterations", iterations, "seed", seed, "max", conf.MaxLocs, "restore", conf.Restore)

	err = c.Run(ctx, iterations)
	fmt.Println()
	if err != nil {
		sugar.Fatalw("check failed", "seed", seed, "err", err)
	}
	sugar.Infow("check passed", "units", unit.String())
}
