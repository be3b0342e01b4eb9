package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resolve server",
	Long:  "Exposes the matcher and merge engine over HTTP: POST a batch of source records to /v1/resolve and receive the merged entities with provenance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(cfg)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
		})

		r.Post("/v1/resolve", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Records []model.SourceRecord `json:"records"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if len(body.Records) == 0 {
				http.Error(w, `{"error":"records is required"}`, http.StatusBadRequest)
				return
			}
			for _, rec := range body.Records {
				if rec.SourceID == "" || rec.RecordID <= 0 {
					http.Error(w, `{"error":"every record needs source_id and record_id"}`, http.StatusBadRequest)
					return
				}
			}

			groups := env.matcher.Match(body.Records)
			entities, err := merge.All(req.Context(), env.coordinator, groups, env.workers)
			if err != nil {
				zap.L().Error("serve: resolve failed", zap.Error(err))
				http.Error(w, `{"error":"resolve failed"}`, http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"entities": entities,
				"groups":   len(entities),
			})
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("serve: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
