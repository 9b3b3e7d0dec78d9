// Package net wires the HTTP surface: health, diagnostics, and the
// websocket gateway endpoint.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"duel-arena/server/internal/dispatch"
	"duel-arena/server/internal/net/ws"
	"duel-arena/server/logging"
)

type HTTPHandlerConfig struct {
	Logger *log.Logger
	// Stats reports logging router counters for /diagnostics; nil is
	// fine.
	Stats func() logging.RouterStats
}

func NewHTTPHandler(hub *ws.Hub, dispatcher *dispatch.Dispatcher, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string `json:"status"`
			ServerTime  int64  `json:"serverTime"`
			ActiveDuels int    `json:"activeDuels"`
			Subscribers int    `json:"subscribers"`
			Events      uint64 `json:"loggedEvents"`
			Dropped     uint64 `json:"droppedEvents"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			ActiveDuels: dispatcher.Store().Len(),
			Subscribers: hub.SubscriberCount(),
		}
		if cfg.Stats != nil {
			stats := cfg.Stats()
			payload.Events = stats.EventsTotal
			payload.Dropped = stats.DroppedTotal
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
		}
	})

	wsHandler := ws.NewHandler(hub, dispatcher, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}
