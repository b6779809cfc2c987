// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/aliasgame/server/internal/auth"
	"github.com/aliasgame/server/internal/broadcast"
	"github.com/aliasgame/server/internal/cache"
	"github.com/aliasgame/server/internal/database"
	"github.com/aliasgame/server/internal/handlers"
	"github.com/aliasgame/server/internal/session"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	var records session.RoundRecorder
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, round records disabled: %v", err)
	} else {
		records = cache.Recorder{}
	}

	language := os.Getenv("WORD_LANGUAGE")
	if language == "" {
		language = "uk"
	}
	reapAfter := 5 * time.Minute
	if v := os.Getenv("ROOM_REAP_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid ROOM_REAP_AFTER: %v", err)
		}
		reapAfter = d
	}

	store := database.Store{}
	authSvc := auth.NewService(auth.NewTwitchClient(), store, logger)

	fabric := broadcast.NewFabric(logger)
	registry := session.NewRegistry()
	svc := session.NewService(registry, fabric, store, language, records, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.RunReaper(ctx, reapAfter)

	server := handlers.NewServer(authSvc, svc, logger)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, server.Routes()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
