package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carelane/medcheck/internal/ingest"
	"github.com/carelane/medcheck/internal/model"
	"github.com/carelane/medcheck/internal/pipeline"
	"github.com/carelane/medcheck/internal/store"
)

var (
	servePort    int
	serveOffline bool
)

// maxUploadBytes bounds multipart uploads; spreadsheets past this size should
// go through batch tooling instead.
const maxUploadBytes = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for file analysis and validation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, serveOffline)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Post("/analyze", handleAnalyze)
			r.Post("/validate", handleValidate(e))
			r.Get("/runs", handleListRuns(e))
			r.Get("/runs/{id}", handleGetRun(e))
			r.Get("/runs/{id}/results", handleRunResults(e))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// receiveUpload saves the multipart "file" part to a temp file, preserving
// the extension so the parser can dispatch on it. Caller removes the file.
func receiveUpload(r *http.Request) (path, name string, size int64, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", 0, eris.Wrap(err, "serve: parse multipart form")
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		return "", "", 0, eris.Wrap(err, "serve: missing file part")
	}
	defer part.Close()

	tmp, err := os.CreateTemp("", "medcheck-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", "", 0, eris.Wrap(err, "serve: create temp file")
	}
	n, err := io.Copy(tmp, part)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", "", 0, eris.Wrap(err, "serve: write upload")
	}
	return tmp.Name(), header.Filename, n, nil
}

// analyzeUpload parses a saved upload and analyzes it under its original
// client-side file name.
func analyzeUpload(path, name string, size int64) (*model.FileAnalysis, error) {
	pf, err := ingest.ParseFile(path, ingest.CSVOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "serve: parse %s", name)
	}
	return pipeline.AnalyzeFile(name, size, pf), nil
}

func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	path, name, size, err := receiveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer os.Remove(path)

	analysis, err := analyzeUpload(path, name, size)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func handleValidate(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, _, _, err := receiveUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defer os.Remove(path)

		run, results, analysis, err := runValidation(r.Context(), e, path, "")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		writeJSON(w, http.StatusOK, model.RunResult{
			Summary:  model.Summarize(results),
			Results:  results,
			Analysis: analysis,
		})
		zap.L().Info("api validation complete",
			zap.String("run_id", run.ID),
			zap.Int("records", len(results)),
		)
	}
}

func handleListRuns(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Status:   model.RunStatus(r.URL.Query().Get("status")),
			FileType: model.FileType(r.URL.Query().Get("file_type")),
		}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.New("limit must be an integer"))
				return
			}
			filter.Limit = n
		}

		runs, err := e.Store.ListRuns(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := e.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleRunResults(e *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := e.Store.ListResults(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if results == nil {
			results = []model.ValidationResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "use the stub oracle (no API key needed)")
	rootCmd.AddCommand(serveCmd)
}
