package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/matching"
	"github.com/lorekeep/skillforge/internal/push"
	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/skill"
	"github.com/lorekeep/skillforge/internal/tokens"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc    *service.Service
	hub    *push.Hub
	logger *zap.Logger
}

// NewHandler creates a new API handler. hub may be nil to run without the
// websocket push channel.
func NewHandler(svc *service.Service, hub *push.Hub, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		// Catalog routes
		r.Get("/skills", h.listSkills)
		r.Post("/skills", h.createSkill)
		r.Get("/skills/{id}", h.getSkill)
		r.Put("/skills/{id}", h.updateSkill)
		r.Post("/skills/{id}/deprecate", h.deprecateSkill)
		r.Post("/skills/{id}/usage", h.recordUsage)

		// Matching engine routes
		r.Post("/match", h.matchTask)
		r.Post("/conflicts", h.checkConflicts)
		r.Post("/analyze", h.analyzeDescription)
		r.Post("/tokens", h.countTokens)

		// Push channel
		if h.hub != nil {
			r.Get("/events/ws", h.hub.ServeHTTP)
			r.Get("/events/recent", h.recentEvents)
		}
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "skillforge"})
}

func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	includeDeprecated := r.URL.Query().Get("include_deprecated") == "true"
	skills, err := h.svc.ListSkills(r.Context(), includeDeprecated)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if skills == nil {
		skills = []*skill.Metadata{}
	}
	writeJSON(w, http.StatusOK, skills)
}

type createSkillRequest struct {
	skill.Draft
	Force bool `json:"force,omitempty"`
}

func (h *Handler) createSkill(w http.ResponseWriter, r *http.Request) {
	var req createSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := h.svc.CreateSkill(r.Context(), &req.Draft, req.Force)
	if err != nil {
		var conflictErr *service.ConflictError
		if errors.As(err, &conflictErr) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":     conflictErr.Error(),
				"conflicts": conflictErr.Conflicts,
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) getSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := h.svc.GetSkill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (h *Handler) updateSkill(w http.ResponseWriter, r *http.Request) {
	var draft skill.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sk, err := h.svc.UpdateSkill(r.Context(), chi.URLParam(r, "id"), &draft)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (h *Handler) deprecateSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeprecateSkill(r.Context(), id); err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deprecated", "id": id})
}

type usageRequest struct {
	Success bool `json:"success"`
}

func (h *Handler) recordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.RecordUsage(r.Context(), id, req.Success); err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded", "id": id})
}

type matchRequest struct {
	Task          string   `json:"task"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

func (h *Handler) matchTask(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	minConfidence := matching.DefaultMinConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	matches, err := h.svc.MatchTask(r.Context(), req.Task, minConfidence)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []matching.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

type conflictRequest struct {
	skill.Draft
	OverlapThreshold *float64 `json:"overlap_threshold,omitempty"`
}

func (h *Handler) checkConflicts(w http.ResponseWriter, r *http.Request) {
	var req conflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := skill.ValidateDraft(&req.Draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	threshold := matching.DefaultOverlapThreshold
	if req.OverlapThreshold != nil {
		threshold = *req.OverlapThreshold
	}

	conflicts, err := h.svc.CheckConflicts(r.Context(), &req.Draft, threshold)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if conflicts == nil {
		conflicts = []matching.Conflict{}
	}
	writeJSON(w, http.StatusOK, conflicts)
}

type analyzeRequest struct {
	Description      string   `json:"description"`
	IntendedTriggers []string `json:"intended_triggers,omitempty"`
}

func (h *Handler) analyzeDescription(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}
	writeJSON(w, http.StatusOK, h.svc.AnalyzeDescription(req.Description, req.IntendedTriggers))
}

type tokensRequest struct {
	Text        string `json:"text,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// countTokens estimates token budgets. With name+description it reports
// the layer-1 estimate; with text it reports the layer-2 estimate; either
// way the progressive-disclosure check comes along.
func (h *Handler) countTokens(w http.ResponseWriter, r *http.Request) {
	var req tokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	layer1 := tokens.CountLayer1(req.Name, req.Description)
	layer2 := tokens.CountLayer2(req.Text)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"layer1":     layer1,
		"layer2":     layer2,
		"disclosure": tokens.CheckProgressiveDisclosure(layer1, layer2),
	})
}

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	events := h.hub.History(limit)
	if events == nil {
		events = []skill.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func statusFor(err error) int {
	if errors.Is(err, skill.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
