package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/musubi/internal/classifier"
	"github.com/hyperjump/musubi/internal/models"
	"github.com/hyperjump/musubi/internal/storage"
)

type askRequest struct {
	Question string `json:"question" validate:"required"`
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=simple multi_hop"`
}

type explainRequest struct {
	Question string `json:"question" validate:"required"`
}

// decode reads a JSON body into v and validates it. It writes the 400
// response itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}
	var force *models.Strategy
	if req.Strategy != "" {
		st := models.Strategy(req.Strategy)
		force = &st
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.String("strategy", req.Strategy))
	result, err := s.answerer.Answer(r.Context(), req.Question, s.retriever, force)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !s.decode(w, r, &req) {
		return
	}
	explanation, err := s.answerer.ExplainRouting(req.Question)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, classifier.ExampleQuestions)
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("index document request", zap.String("id", input.ID), zap.String("title", input.Title))
	doc, err := s.indexer.IndexDocument(r.Context(), &input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "indexed"})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("deletion failed", zap.Error(err))
		}
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleGraphReload(w http.ResponseWriter, r *http.Request) {
	if s.graphLoader == nil {
		s.respondError(w, http.StatusNotImplemented, "graph loading not enabled")
		return
	}
	report, err := s.graphLoader.Load(r.Context())
	if err != nil {
		s.logger.Error("graph reload failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Info("graph reloaded", zap.Strings("loaded", report.Loaded), zap.Strings("skipped", report.Skipped))
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.SetDocuments(int(docCount))
	resp := map[string]interface{}{
		"documents": docCount,
		"chunks":    chunkCount,
	}
	if s.vectorIndex != nil {
		resp["vector_index_size"] = s.vectorIndex.Size()
	}
	if s.paths != nil {
		if diskBytes, err := storage.DiskUsageBytes(s.paths.DatabasePath, s.paths.BleveIndexPath, s.paths.VectorIndexPath); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	if s.graphStats != nil {
		stats, err := s.graphStats.Stats(ctx)
		if err != nil {
			s.logger.Warn("status: graph stats failed", zap.Error(err))
			resp["graph_error"] = err.Error()
		} else {
			resp["graph"] = stats
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGraphQuery),
		errors.Is(err, models.ErrRetrieval),
		errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
