package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/memeshare/memeshare/backend-go/internal/asset"
	"github.com/memeshare/memeshare/backend-go/internal/config"
	"github.com/memeshare/memeshare/backend-go/internal/engine"
	"github.com/memeshare/memeshare/backend-go/internal/export"
	mw "github.com/memeshare/memeshare/backend-go/internal/middleware"
	"github.com/memeshare/memeshare/backend-go/internal/preset"
	"github.com/memeshare/memeshare/backend-go/internal/session"
	"github.com/memeshare/memeshare/backend-go/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	presets := preset.Default()
	if cfg.PresetFile != "" {
		if presets, err = preset.LoadFile(cfg.PresetFile); err != nil {
			slog.Error("load presets", "error", err, "file", cfg.PresetFile)
			os.Exit(1)
		}
	}

	var loaderOpts []asset.Option
	if cfg.PrivateImageHosts {
		loaderOpts = append(loaderOpts, asset.WithPrivateNetworks())
	}
	loader := asset.NewLoader(cfg.AssetDir, cfg.MaxImageBytes, cfg.MaxImageSide, loaderOpts...)
	engineOpts := engine.Options{Presets: presets, Quality: cfg.ExportQuality}

	hub := session.NewHub(loader, engineOpts, cfg.LoadTimeout)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(loader, cfg.ExportQuality, cfg.LoadTimeout)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, hub.Rooms())
	}).Methods("GET")

	r.HandleFunc("/presets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, presets)
	}).Methods("GET")

	// Template images
	r.HandleFunc("/templates", assetHandler.List).Methods("GET")
	r.PathPrefix(asset.Prefix).Handler(assetHandler.Serve()).Methods("GET")

	r.HandleFunc("/export/render", exportHandler.Render).Methods("POST", "OPTIONS")

	// Live sessions
	r.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"sessionId": typeid.NewSessionID()})
	}).Methods("POST", "OPTIONS")
	r.HandleFunc("/ws/session/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "assets", cfg.AssetDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, origins []string) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := typeid.Validate(sessionID, typeid.PrefixSession); err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, sessionID, clientID, displayName)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originHosts turns allowed origins into websocket origin patterns, which
// match on host only.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		} else {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
