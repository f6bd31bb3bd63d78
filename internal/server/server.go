// Package server exposes the continuity memory subsystem over HTTP. It is
// a thin facade: every endpoint delegates to the orchestrator and adds no
// semantics of its own.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/driftwood-studio/loom/internal/memory"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

// Server hosts the HTTP facade.
type Server struct {
	store        project.Store
	orchestrator *memory.Orchestrator
	logger       *slog.Logger
}

// New creates a server over a store and orchestrator.
func New(store project.Store, orch *memory.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, orchestrator: orch, logger: logger}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Post("/chapters", s.saveChapter)
		r.Get("/context", s.retrieveContext)
		r.Get("/characters/{characterID}/state", s.characterState)
	})

	return r
}

// saveChapterRequest is the POST /chapters body.
type saveChapterRequest struct {
	ChapterID string `json:"chapter_id,omitempty"`
	Number    int    `json:"number"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
}

// saveChapterResponse reports what the save triggered.
type saveChapterResponse struct {
	ChapterID  string                `json:"chapter_id"`
	Summarized bool                  `json:"summarized"`
	Summary    *story.ChapterSummary `json:"summary,omitempty"`
	StepError  string                `json:"step_error,omitempty"`
}

func (s *Server) saveChapter(w http.ResponseWriter, req *http.Request) {
	projectID := chi.URLParam(req, "projectID")

	var in saveChapterRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Content == "" {
		http.Error(w, "chapter content is required", http.StatusBadRequest)
		return
	}

	p, err := s.store.GetProject(req.Context(), projectID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	chapter := story.Chapter{
		ID:        in.ChapterID,
		Number:    in.Number,
		Title:     in.Title,
		Content:   in.Content,
		UpdatedAt: time.Now(),
	}
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}

	chapters := p.UpsertChapter(chapter)
	if _, err := s.store.UpdateProject(req.Context(), projectID, project.Patch{Chapters: &chapters}); err != nil {
		s.writeStoreError(w, err)
		return
	}

	summary, err := s.orchestrator.AutoSummarizeOnSave(req.Context(), projectID, chapter.ID)
	resp := saveChapterResponse{ChapterID: chapter.ID, Summarized: summary != nil, Summary: summary}
	if err != nil {
		// The chapter itself is saved; the continuity step failed and
		// left memory state unchanged.
		resp.StepError = s.orchestrator.LastError()
		s.logger.Warn("summarization step failed", "project", projectID, "chapter", chapter.ID, "err", err)
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	if summary != nil {
		if err := s.orchestrator.UpdateAllCharactersAfterChapter(req.Context(), projectID, chapter.ID); err != nil {
			resp.StepError = s.orchestrator.LastError()
			s.logger.Warn("knowledge update step failed", "project", projectID, "chapter", chapter.ID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) retrieveContext(w http.ResponseWriter, req *http.Request) {
	projectID := chi.URLParam(req, "projectID")
	q := req.URL.Query()

	chapterNumber := 0
	if v := q.Get("chapter"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "chapter must be an integer", http.StatusBadRequest)
			return
		}
		chapterNumber = n
	}

	memCtx, err := s.orchestrator.RelevantContext(req.Context(), memory.ContextOptions{
		ProjectID:            projectID,
		CurrentChapterNumber: chapterNumber,
		CurrentScene:         q.Get("scene"),
		POVCharacterID:       q.Get("pov"),
		TaskDescription:      q.Get("task"),
		Focus:                q.Get("focus"),
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, memCtx)
}

func (s *Server) characterState(w http.ResponseWriter, req *http.Request) {
	projectID := chi.URLParam(req, "projectID")
	characterID := chi.URLParam(req, "characterID")

	state, err := s.orchestrator.CharacterState(req.Context(), projectID, characterID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if state == nil {
		http.Error(w, "no knowledge snapshots for character", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, project.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
