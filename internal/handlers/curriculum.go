package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"chess-coach/internal/audit"
	"chess-coach/internal/curriculum"
	"chess-coach/internal/progress"
)

type CurriculumHandler struct {
	catalog  *curriculum.Catalog
	progress *progress.Service
	audit    *audit.Logger
}

func NewCurriculumHandler(catalog *curriculum.Catalog, progressService *progress.Service, auditLogger *audit.Logger) *CurriculumHandler {
	return &CurriculumHandler{catalog: catalog, progress: progressService, audit: auditLogger}
}

type UnlockChapterRequest struct {
	Password string `json:"password" validate:"max=128"`
}

type CompleteLessonRequest struct {
	TimeTaken int `json:"timeTaken" validate:"min=0"` // seconds
	HintsUsed int `json:"hintsUsed" validate:"min=0"`
}

type LessonResponse struct {
	Progress *progress.Progress     `json:"progress"`
	Attempt  progress.LessonAttempt `json:"attempt"`
}

type CheckScenarioRequest struct {
	Ply  int    `json:"ply" validate:"min=0"`
	Move string `json:"move" validate:"required,min=2,max=10"`
}

type CompleteScenarioRequest struct {
	Accuracy  int `json:"accuracy" validate:"min=0,max=100"`
	TimeTaken int `json:"timeTaken" validate:"min=0"` // seconds
	HintsUsed int `json:"hintsUsed" validate:"min=0"`
}

func respondWithCurriculumError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, curriculum.ErrUnknownChapter),
		errors.Is(err, curriculum.ErrUnknownLesson),
		errors.Is(err, curriculum.ErrUnknownScenario),
		errors.Is(err, curriculum.ErrUnknownPrinciple):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, curriculum.ErrInvalidPly):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, progress.ErrChapterLocked):
		respondWithError(w, http.StatusForbidden, "Chapter is locked")
	default:
		log.Printf("Curriculum request failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetCurriculum returns all chapters, lessons, scenarios and principles.
// Chapter passwords are never included.
// GET /api/curriculum
func (h *CurriculumHandler) GetCurriculum(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.Content())
}

// UnlockChapter opens a chapter, either in sequence or with its password.
// POST /api/curriculum/chapters/{id}/unlock
func (h *CurriculumHandler) UnlockChapter(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	chapterID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid chapter ID")
		return
	}
	var req UnlockChapterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	p, err := h.progress.UnlockChapter(r.Context(), playerID, chapterID, req.Password)
	if err != nil {
		if errors.Is(err, progress.ErrChapterLocked) {
			detail := "sequence"
			if req.Password != "" {
				detail = "wrong password"
			}
			h.audit.LogEvent(r, audit.EventChapterUnlockFailed, playerID, chapterID, detail)
		}
		respondWithCurriculumError(w, err)
		return
	}
	method := "sequence"
	if req.Password != "" {
		method = "password"
	}
	h.audit.LogEvent(r, audit.EventChapterUnlock, playerID, chapterID, method)
	respondWithJSON(w, http.StatusOK, p)
}

// CompleteLesson records a lesson attempt.
// POST /api/curriculum/lessons/{id}/complete
func (h *CurriculumHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req CompleteLessonRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, attempt, err := h.progress.CompleteLesson(r.Context(), playerID, mux.Vars(r)["id"],
		time.Duration(req.TimeTaken)*time.Second, req.HintsUsed)
	if err != nil {
		respondWithCurriculumError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, LessonResponse{Progress: p, Attempt: attempt})
}

// CheckScenario judges one move of a scenario solution.
// POST /api/curriculum/scenarios/{id}/check
func (h *CurriculumHandler) CheckScenario(w http.ResponseWriter, r *http.Request) {
	var req CheckScenarioRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	check, err := h.catalog.CheckScenarioMove(mux.Vars(r)["id"], req.Ply, req.Move)
	if err != nil {
		respondWithCurriculumError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, check)
}

// CompleteScenario records a solved scenario.
// POST /api/curriculum/scenarios/{id}/complete
func (h *CurriculumHandler) CompleteScenario(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req CompleteScenarioRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	p, err := h.progress.CompleteScenario(r.Context(), playerID, mux.Vars(r)["id"], req.Accuracy,
		time.Duration(req.TimeTaken)*time.Second, req.HintsUsed)
	if err != nil {
		respondWithCurriculumError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// CompletePrinciple records a studied principle.
// POST /api/curriculum/principles/{id}/complete
func (h *CurriculumHandler) CompletePrinciple(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	p, err := h.progress.CompletePrinciple(r.Context(), playerID, mux.Vars(r)["id"])
	if err != nil {
		respondWithCurriculumError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}
