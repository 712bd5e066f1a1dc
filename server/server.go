package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Server answers resolver lookups over HTTP.
type Server struct {
	store *Store
	log   *zap.Logger
}

// New creates a server over the given store.
func New(store *Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, log: log}
}

// Handler returns the HTTP routes: GET /resolve?number=<token> and
// GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /resolve", s.handleResolve)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type resolveResponse struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.URL.Query().Get("number"))
	if number == "" {
		s.writeJSON(w, http.StatusBadRequest, resolveResponse{Error: "missing number parameter"})
		return
	}

	imageURL, err := s.store.Lookup(number)
	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Info("unknown identifier", zap.String("number", number))
		s.writeJSON(w, http.StatusNotFound, resolveResponse{Error: "identifier not found"})
	case err != nil:
		s.log.Error("lookup failed", zap.String("number", number), zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, resolveResponse{Error: "lookup failed"})
	default:
		s.log.Debug("resolved identifier", zap.String("number", number))
		s.writeJSON(w, http.StatusOK, resolveResponse{ImageURL: imageURL})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body resolveResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}
