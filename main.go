package main

import (
	"context"
	"time"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/controllers"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/routes"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/storage"
	"github.com/pedulirasa/backend/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	rdb := utils.InitRedis(cfg)
	db := config.InitDatabase(models.All()...)
	utils.RegisterValidators()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("init storage: %v", err)
	}

	svc := services.New(db,
		services.WithLocation(cfg.Location()),
		services.WithResolver(storage.ResolverFor(store)),
		services.WithFeedCache(time.Duration(cfg.FeedCacheTTL)*time.Second),
	)

	hub := controllers.NewChatHub()
	go hub.Run(ctx)

	utils.StartUploadCleaner(ctx, db, store, 5*time.Minute)

	r := routes.SetupRouter(routes.Deps{
		DB:      db,
		Service: svc,
		Storage: store,
		Hub:     hub,
		Mailer:  utils.SMTPMailer{},
	})

	closeAll := func() {
		cancel()
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, closeAll); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
