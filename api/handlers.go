package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/store"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	resp, err := s.svc.Ask(r.Context(), req.Question)
	if err != nil {
		s.logger.Printf("ask failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to answer question"))
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type documentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

func documentFrom(d doc.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		UploadedAt:  d.UploadedAt,
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("uploaded file is empty"))
		return
	}

	document := doc.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	saved, err := s.store.Save(r.Context(), document)
	if err != nil {
		s.logger.Printf("save document %q: %v", header.Filename, err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to store document"))
		return
	}

	s.logger.Printf("stored document %s (%s, %d bytes)", saved.ID, saved.FileName, saved.SizeBytes)
	s.writeJSON(w, http.StatusCreated, documentFrom(saved))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Printf("list documents: %v", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to list documents"))
		return
	}

	out := make([]documentResponse, 0, len(documents))
	for _, d := range documents {
		out = append(out, documentFrom(d))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	// Fetch first so the section cache entry for this content can be
	// dropped along with the row.
	document, err := s.store.Get(r.Context(), docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Printf("load document %s: %v", docID, err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to delete document"))
		return
	}

	if err := s.store.Delete(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.logger.Printf("delete document %s: %v", docID, err)
		s.writeError(w, http.StatusInternalServerError, errors.New("failed to delete document"))
		return
	}

	if s.cache != nil {
		s.cache.Delete(document.SHA256)
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "document deleted"})
}
