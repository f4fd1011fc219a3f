package viewer

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

//go:embed web/index.html
var assets embed.FS

func (s *Server) registerRoutes(mux *http.ServeMux) error {
	index, err := assets.ReadFile("web/index.html")
	if err != nil {
		return err
	}

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/results", s.handleListResults)
	mux.HandleFunc("GET /api/results/{filename}", s.handleGetResult)
	mux.HandleFunc("GET /api/prompts/{promptId}", s.handleGetPrompt)
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Not found"))
	})
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listResponse struct {
	Files []string `json:"files"`
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	stored, err := s.cfg.Store.List(r.Context())
	if err != nil {
		s.logger.Error("listing results failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to read results directory"))
		return
	}
	files := make([]string, 0, len(stored))
	for _, sr := range stored {
		files = append(files, sr.Name)
	}
	writeJSON(w, http.StatusOK, listResponse{Files: files})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	// The load is shared by every caller in the flight, so it must not end
	// when the first caller goes away.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.loads.Do("result:"+name, func() (any, error) {
		return s.cfg.Store.Load(ctx, name)
	})
	if err != nil {
		if errors.Is(err, ports.ErrResultNotFound) || errors.Is(err, ports.ErrInvalidResultName) {
			writeJSON(w, http.StatusNotFound, errorBody("File not found"))
			return
		}
		s.logger.Error("loading result failed", "file", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to read file"))
		return
	}

	data := v.([]byte)
	if !json.Valid(data) {
		s.logger.Error("stored result is not valid JSON", "file", name)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to read file"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("promptId")
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.loads.Do("prompt:"+id, func() (any, error) {
		return s.cfg.Prompts.ReadPrompt(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Prompt not found"))
			return
		}
		s.logger.Error("loading prompt failed", "prompt", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to read prompt"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": v.(string)})
}

func errorBody(msg string) map[string]string { return map[string]string{"error": msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
