package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tshola/ngoma/apps/api/echoapi"
	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/chat"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/course"
	"github.com/tshola/ngoma/core/feedback"
	"github.com/tshola/ngoma/core/member"
	"github.com/tshola/ngoma/core/redeem"
	"github.com/tshola/ngoma/services/logger"
	"github.com/tshola/ngoma/services/notification"
	"github.com/tshola/ngoma/storage/cache/filecache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
	"github.com/tshola/ngoma/storage/remote/mongodb"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var appLogger core.Logger
	if conf.RollbarToken != "" {
		appLogger = logsvc.NewRollbarLogger(std, conf)
	} else {
		appLogger = logsvc.NewStdLogger(std)
	}

	// local cache; one file per collection
	cache, err := filecache.New(conf.CacheDir)
	errAndDie(std, err)

	// remote document store
	var remote collection.RemoteStore
	if conf.Debug {
		remote = dummyremote.New()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := mongodb.Open(ctx, conf, appLogger)
		cancel()
		errAndDie(std, err)
		defer store.Close(context.Background())
		remote = store
	}

	// set up services
	var notifSvc core.NotificationService
	if conf.Debug {
		notifSvc = notifsvc.NewConsoleService(conf.AppName)
	} else {
		notifSvc = notifsvc.NewSendgridService(conf, appLogger)
	}

	memberSvc := member.NewService(collection.NewManager(collection.Options[member.Member]{
		Name:          member.Collection,
		Remote:        remote,
		Cache:         cache,
		Logger:        appLogger,
		Conflicts:     member.Conflicts,
		RetryInterval: conf.SyncRetryInterval,
	}), appLogger)

	courseSvc := course.NewService(
		collection.NewManager(collection.Options[course.Course]{
			Name:          course.Collection,
			Remote:        remote,
			Cache:         cache,
			Logger:        appLogger,
			Defaults:      course.SampleCourses(),
			RetryInterval: conf.SyncRetryInterval,
		}),
		collection.NewManager(collection.Options[course.Lesson]{
			Name:          course.LessonCollection,
			Remote:        remote,
			Cache:         cache,
			Logger:        appLogger,
			Defaults:      course.SampleLessons(),
			RetryInterval: conf.SyncRetryInterval,
		}),
		collection.NewManager(collection.Options[course.Comment]{
			Name:          course.CommentCollection,
			Remote:        remote,
			Cache:         cache,
			Logger:        appLogger,
			RetryInterval: conf.SyncRetryInterval,
		}),
		appLogger,
	)

	chatSvc := chat.NewService(collection.NewManager(collection.Options[chat.Message]{
		Name:          chat.Collection,
		Remote:        remote,
		Cache:         cache,
		Logger:        appLogger,
		RetryInterval: conf.SyncRetryInterval,
	}), notifSvc, appLogger)

	redeemSvc := redeem.NewService(collection.NewManager(collection.Options[redeem.Key]{
		Name:          redeem.Collection,
		Remote:        remote,
		Cache:         cache,
		Logger:        appLogger,
		Conflicts:     redeem.Conflicts,
		RetryInterval: conf.SyncRetryInterval,
	}), appLogger)

	feedbackSvc := feedback.NewService(collection.NewManager(collection.Options[feedback.Feedback]{
		Name:          feedback.Collection,
		Remote:        remote,
		Cache:         cache,
		Logger:        appLogger,
		RetryInterval: conf.SyncRetryInterval,
	}), notifSvc, appLogger)

	// reconcile collections against the remote store in the background; the
	// API serves from cache-seeded state in the meantime
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for name, load := range map[string]func(context.Context) error{
			"members":  memberSvc.Load,
			"courses":  courseSvc.Load,
			"chat":     chatSvc.Load,
			"keys":     redeemSvc.Load,
			"feedback": feedbackSvc.Load,
		} {
			if err := load(ctx); err != nil && err != collection.ErrCloudEmpty {
				appLogger.Warn("initial sync failed", name, err)
			}
		}
	}()

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Conf:        conf,
			Logger:      appLogger,
			MemberSvc:   memberSvc,
			CourseSvc:   courseSvc,
			ChatSvc:     chatSvc,
			RedeemSvc:   redeemSvc,
			FeedbackSvc: feedbackSvc,
		},
	)
	errAndDie(std, app.Start())
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
