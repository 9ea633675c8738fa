// Package api exposes the HTTP surface: ask a question, manage the
// uploaded policy documents.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fabfab/policy-qa/chat"
	"github.com/fabfab/policy-qa/config"
	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/extract"
)

// DocumentStore is the slice of store.Store the handlers need.
type DocumentStore interface {
	Save(ctx context.Context, document doc.Document) (doc.Document, error)
	List(ctx context.Context) ([]doc.Document, error)
	Get(ctx context.Context, id string) (doc.Document, error)
	Delete(ctx context.Context, id string) error
}

type Server struct {
	router chi.Router
	svc    *chat.Service
	store  DocumentStore
	cache  *extract.Cache
	logger *log.Logger
	cfg    config.Config
}

func NewServer(svc *chat.Service, st DocumentStore, cache *extract.Cache, logger *log.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		svc:    svc,
		store:  st,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Post("/v1/ask", s.handleAsk)
	r.Post("/v1/documents", s.handleUpload)
	r.Get("/v1/documents", s.handleListDocuments)
	r.Delete("/v1/documents/{docID}", s.handleDeleteDocument)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
