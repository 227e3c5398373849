package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalwatch/freqscan-cli/internal/scanner"
	"github.com/signalwatch/freqscan-cli/internal/taxonomy"
	"github.com/signalwatch/freqscan-cli/pkg/radioref"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for frequency lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScanner(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Scanner, env.Creds),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(s *scanner.Scanner, creds radioref.Credentials) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/scan", func(w http.ResponseWriter, req *http.Request) {
		location := req.URL.Query().Get("location")
		if location == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location is required"})
			return
		}
		categories := taxonomy.ParseCategories(req.URL.Query()["category"])

		result, err := s.MergeAndCache(req.Context(), location, categories, creds)
		if err != nil {
			zap.L().Error("scan request failed", zap.String("location", location), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/api/v1/trip", func(w http.ResponseWriter, req *http.Request) {
		start := req.URL.Query().Get("start")
		end := req.URL.Query().Get("end")
		if start == "" || end == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end are required"})
			return
		}
		categories := taxonomy.ParseCategories(req.URL.Query()["category"])

		trip, err := s.PlanTrip(req.Context(), start, end, categories, creds)
		if err != nil {
			zap.L().Error("trip request failed",
				zap.String("start", start), zap.String("end", end), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "trip lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, trip)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
