package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/compose"
	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
	"github.com/basedlsg/Nemo-Time-sub000/internal/ingest"
	"github.com/basedlsg/Nemo-Time-sub000/internal/metadata"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/query"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
)

const (
	requestTimeout = 2 * time.Minute
	maxBodyBytes   = 4 << 20
	maxIngestBatch = 100
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for questions, composition, metadata and ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		return startServer(ctx, buildRouter(env, cfg.Server.CORSOrigins), resolvePort(servePort, cfg.Server.Port))
	},
}

func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves h until ctx is done, then shuts down gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// buildRouter wires the HTTP API over env.
func buildRouter(env *appEnv, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	h := &handlers{env: env}
	r.Get("/health", h.health)
	r.Post("/query", h.query)
	r.Post("/compose", h.compose)
	r.Post("/metadata", h.metadata)
	r.Post("/ingest", h.ingest)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type handlers struct {
	env *appEnv
}

type healthResponse struct {
	Status   string                    `json:"status"`
	Circuits []resilience.ServiceState `json:"circuits,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.env.Breakers != nil {
		resp.Circuits = h.env.Breakers.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	resp, err := h.env.Query.Answer(r.Context(), req)
	if err != nil {
		zap.L().Error("query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type composeRequest struct {
	Candidates []model.Candidate `json:"candidates"`
	Question   string            `json:"question"`
	Lang       string            `json:"lang"`
}

func (h *handlers) compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lang := req.Lang
	if lang == "" {
		lang = query.DefaultLang
	}
	writeJSON(w, http.StatusOK, compose.Compose(req.Candidates, req.Question, lang))
}

type metadataRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	model.Hints
}

type metadataResponse struct {
	Metadata     model.DocumentMetadata   `json:"metadata"`
	Completeness model.CompletenessReport `json:"completeness"`
}

func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	md := h.env.Extractor.Extract(req.Text, req.URL, req.Hints)
	writeJSON(w, http.StatusOK, metadataResponse{
		Metadata:     md,
		Completeness: metadata.ValidateCompleteness(md),
	})
}

type ingestRequest struct {
	Sources []model.Source `json:"sources"`
}

type ingestResponse struct {
	Results []model.IngestResult       `json:"results"`
	Summary map[model.IngestStatus]int `json:"summary"`
}

// ingest accepts only http(s) sources; local paths are a CLI concern.
func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, "sources are required")
		return
	}
	if len(req.Sources) > maxIngestBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d sources per request", maxIngestBatch))
		return
	}
	for _, s := range req.Sources {
		if !ingest.IsURL(s.Location) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("source %q is not an http(s) url", s.Location))
			return
		}
	}

	results, err := h.env.Pipeline.IngestAll(r.Context(), req.Sources)
	if err != nil {
		zap.L().Error("ingest failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest interrupted")
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Results: results, Summary: ingest.Summarize(results)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
