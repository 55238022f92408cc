package main

import (
	"log"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"locstash/internal/config"
	"locstash/internal/locdb"
	"locstash/internal/storage"
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	conf, err := config.NewConfig(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(conf.Debug)
	if err != nil {
		log.Fatal(err)
	}
	logger = logger.With(zap.String("session", uuid.New().String()))
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	unit := storage.NewLogUnit(logger)
	dev := storage.Chain(storage.NewFile(conf.StoreFile), storage.NewCommitChain(unit.CommitMiddleware))

	if len(conf.Args) > 0 && conf.Args[0] == "erase" {
		if err = dev.Begin(conf.StoreSize); err == nil {
			err = storage.Erase(dev)
		}
		if err != nil {
			sugar.Fatalw("erase", "file", conf.StoreFile, "err", err)
		}
		sugar.Infow("erased", "file", conf.StoreFile)
		return
	}

	s, err := locdb.Open(conf, dev, logger)
	if err != nil {
		sugar.Fatalw("open", "file", conf.StoreFile, "err", err)
	}
	if err = run(s, conf.Args, os.Stdout); err != nil {
		sugar.Fatalw("run", "args", conf.Args, "err", err)
	}
	sugar.Debugw("done", "commits", unit.String())
}
