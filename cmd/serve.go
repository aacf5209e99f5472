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
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/job"
)

var (
	servePort     int
	serveNoRender bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for extraction requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initRunner(ctx, serveNoRender)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Handle("/metrics", promhttp.Handler())

		r.Post("/v1/extract", func(w http.ResponseWriter, req *http.Request) {
			var body job.Request
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.ProductName == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_name is required"})
				return
			}
			if len(body.Properties) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "properties are required"})
				return
			}

			body.JobID = uuid.New().String()

			// Run asynchronously against the server context so in-flight jobs
			// wind down on shutdown; results land in the store.
			go func() {
				if _, err := env.Runner.Run(ctx, body); err != nil {
					zap.L().Error("serve: extraction failed",
						zap.String("job_id", body.JobID),
						zap.String("product", body.ProductName),
						zap.Error(err),
					)
				}
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"job_id": body.JobID,
			})
		})

		r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			result, err := env.Store.GetResult(req.Context(), id)
			if err != nil {
				zap.L().Error("serve: get result failed", zap.String("job_id", id), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
				return
			}
			if result == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found or still running"})
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoRender, "no-render", false, "disable Tier-3 headless rendering")
	rootCmd.AddCommand(serveCmd)
}
