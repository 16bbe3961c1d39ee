package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/meshcall/meshcall/internal/logging"
	"github.com/meshcall/meshcall/internal/server"
	"github.com/meshcall/meshcall/internal/signaling"
)

func main() {
	logging.Init()

	registry := signaling.NewRegistry()
	hub := signaling.NewHub(registry)
	go hub.Run()

	http.HandleFunc("/health", server.Health)
	http.HandleFunc("/ws", server.ServeWs(hub))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("signaling server listening", "port", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
