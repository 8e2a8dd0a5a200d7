package main

import (
	"context"
	"log"

	"github.com/simvex/simvex-server/internal/server"
	"github.com/simvex/simvex-server/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	app.Run(ctx)
}
