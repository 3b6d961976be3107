package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/agent"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var servePort int

// runStarter is the slice of the agent the HTTP surface needs.
type runStarter interface {
	Start(query string) (*agent.RunHandle, error)
	Stats() model.RunStats
}

// leadReader is the slice of the sink the HTTP surface needs.
type leadReader interface {
	ReadAll(ctx context.Context) ([]model.Lead, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
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
			Handler: newRouter(env.Agent, env.Sink),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newRouter builds the HTTP surface: run control, lead listing, health.
func newRouter(a runStarter, leads leadReader) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
			return
		}

		if _, err := a.Start(req.Query); err != nil {
			if errors.Is(err, agent.ErrRunActive) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already active"})
				return
			}
			zap.L().Error("failed to start run", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start run"})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"query":  req.Query,
		})
	})

	r.Get("/run/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Stats())
	})

	r.Get("/leads", func(w http.ResponseWriter, r *http.Request) {
		all, err := leads.ReadAll(r.Context())
		if err != nil {
			zap.L().Error("failed to read leads", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read leads"})
			return
		}
		if all == nil {
			all = []model.Lead{}
		}
		writeJSON(w, http.StatusOK, all)
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
