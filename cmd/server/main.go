package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/dodomondo0/fool-p2p-app/internal/logging"
	"github.com/dodomondo0/fool-p2p-app/internal/relay"
	"github.com/dodomondo0/fool-p2p-app/internal/server"
)

func main() {
	logging.Init()

	hub := relay.NewHub()
	go hub.Run()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	slog.Info("starting signaling server", "port", port)
	log.Fatal(http.ListenAndServe(":"+port, server.Routes(hub)))
}
