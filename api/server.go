package api

import (
	"log"

	"Tourney/api/config"
	"Tourney/api/controllers"
)

var server = controllers.Server{}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	server.Initialize(cfg)
	server.Run(server.ListenAddr())
}
