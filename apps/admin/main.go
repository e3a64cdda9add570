package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
	"github.com/tshola/ngoma/services/logger"
	"github.com/tshola/ngoma/storage/cache/filecache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
	"github.com/tshola/ngoma/storage/remote/mongodb"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewStdLogger(logger)

	cache, err := filecache.New(conf.CacheDir)
	errAndDie(err)

	var remote collection.RemoteStore
	if conf.Debug {
		remote = dummyremote.New()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := mongodb.Open(ctx, conf, appLogger)
		cancel()
		errAndDie(err)
		defer store.Close(context.Background())
		remote = store
	}

	memberSvc := member.NewService(collection.NewManager(collection.Options[member.Member]{
		Name:      member.Collection,
		Remote:    remote,
		Cache:     cache,
		Logger:    appLogger,
		Conflicts: member.Conflicts,
	}), appLogger)
	redeemSvc := redeem.NewService(collection.NewManager(collection.Options[redeem.Key]{
		Name:      redeem.Collection,
		Remote:    remote,
		Cache:     cache,
		Logger:    appLogger,
		Conflicts: redeem.Conflicts,
	}), appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := memberSvc.Load(ctx); err != nil && err != collection.ErrCloudEmpty {
		errAndDie(err)
	}
	if err := redeemSvc.Load(ctx); err != nil && err != collection.ErrCloudEmpty {
		errAndDie(err)
	}

	// start CLI
	cli := commandLine{
		memberSvc: memberSvc,
		redeemSvc: redeemSvc,
		remote:    remote,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
