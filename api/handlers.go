/*
handlers.go - HTTP API handlers for the timecard rules engine

PURPOSE:
  Exposes the rules engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the pipeline and the store.

ENDPOINTS:
  Rules:
    POST   /api/rules/apply                 Run the pipeline over cards

  Time cards:
    POST   /api/timecards                   Create a card with its punches
    GET    /api/timecards/{id}              Get a card
    GET    /api/timecards/{id}/lines        Get persisted derived lines
    GET    /api/timecards/{id}/segments     Get the raw punches

  Contracts:
    GET    /api/contracts/{id}              Get a contract and its rules
    PUT    /api/contracts/{id}              Store a contract and its rules

  Admin:
    POST   /api/reset                       Database reset (dev only)
    GET    /api/health                      Liveness probe

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  A batch run with per-card failures still returns 200; the per-card
  outcome is in the response body, mirroring the engine's result codes.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - pipeline/runner.go: The engine the handlers delegate to
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
	"github.com/crewbill/timecard-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *pipeline.Engine
}

// NewHandler creates a handler with the engine wired to the store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		Engine: &pipeline.Engine{
			Cards:     store,
			Contracts: store,
			History:   store,
			Lines:     store,
			Runs:      store,
		},
	}
}

// =============================================================================
// RULES
// =============================================================================

// ApplyRules runs the pipeline over the requested cards.
// POST /api/rules/apply
func (h *Handler) ApplyRules(w http.ResponseWriter, r *http.Request) {
	var req ApplyRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.TimeCardIDs) == 0 {
		writeError(w, http.StatusBadRequest, "time_card_ids is required", nil)
		return
	}

	modes, err := parseModes(req.Modes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}

	res, err := h.Engine.ApplyRules(r.Context(), req.TimeCardIDs, modes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply rules", err)
		return
	}

	writeJSON(w, http.StatusOK, ApplyRulesResponse{
		Code:      res.Code,
		Message:   res.Message,
		Succeeded: res.SuccessIDs,
		Failures:  res.Failures,
	})
}

func parseModes(raw []string) ([]segment.Mode, error) {
	var modes []segment.Mode
	for _, m := range raw {
		switch strings.ToLower(m) {
		case "bill":
			modes = append(modes, segment.ModeBill)
		case "pay":
			modes = append(modes, segment.ModePay)
		default:
			return nil, fmt.Errorf("unknown mode %q", m)
		}
	}
	return modes, nil
}

// =============================================================================
// TIME CARDS
// =============================================================================

// CreateTimeCard stores a card and its raw punches.
// POST /api/timecards
func (h *Handler) CreateTimeCard(w http.ResponseWriter, r *http.Request) {
	var req CreateTimeCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" || req.ContractID == "" {
		writeError(w, http.StatusBadRequest, "worker_id and contract_id are required", nil)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return
	}

	card := &segment.TimeCard{
		ID:         orFresh(req.ID),
		WorkerID:   req.WorkerID,
		EventID:    req.EventID,
		ContractID: req.ContractID,
		Date:       date,
		JobTitle:   req.JobTitle,
	}
	if err := h.Store.SaveCard(r.Context(), card); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save time card", err)
		return
	}

	for _, s := range req.Segments {
		if !s.OutAt.After(s.InAt) {
			writeError(w, http.StatusBadRequest, "segment out_at must be after in_at", nil)
			return
		}
		seg := &segment.TimeSegment{
			ID:         orFresh(s.ID),
			TimeCardID: card.ID,
			WorkerID:   card.WorkerID,
			Date:       segment.Day(s.InAt),
			In:         segment.ClockOf(s.InAt),
			Out:        segment.ClockOf(s.OutAt),
			InAt:       s.InAt,
			OutAt:      s.OutAt,
			Role:       segment.RoleClock,
			Flags:      s.Flags,
			Note:       s.Note,
		}
		if err := h.Store.SaveClockSegment(r.Context(), seg); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save clock segment", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toTimeCardDTO(card))
}

// GetTimeCard returns a single card.
// GET /api/timecards/{id}
func (h *Handler) GetTimeCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	card, err := h.Engine.Cards.Card(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Time card not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeCardDTO(card))
}

// GetTimeCardLines returns the persisted derived lines of a card,
// optionally filtered by ?mode=bill|pay.
// GET /api/timecards/{id}/lines
func (h *Handler) GetTimeCardLines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lines, err := h.Engine.Lines.DerivedLines(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load lines", err)
		return
	}

	if modeFilter := r.URL.Query().Get("mode"); modeFilter != "" {
		modes, err := parseModes([]string{modeFilter})
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid mode", err)
			return
		}
		var filtered []pipeline.Line
		for _, l := range lines {
			if l.Mode == modes[0] {
				filtered = append(filtered, l)
			}
		}
		lines = filtered
	}

	writeJSON(w, http.StatusOK, toLineDTOs(lines))
}

// GetClockSegments returns a card's raw punches.
// GET /api/timecards/{id}/segments
func (h *Handler) GetClockSegments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clocks, err := h.Engine.Cards.ClockSegments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load clock segments", err)
		return
	}

	type clockDTO struct {
		ID    string        `json:"id"`
		Date  string        `json:"date"`
		InAt  string        `json:"in_at"`
		OutAt string        `json:"out_at"`
		Flags segment.Flags `json:"flags"`
		Note  string        `json:"note,omitempty"`
	}
	dtos := make([]clockDTO, len(clocks))
	for i, c := range clocks {
		dtos[i] = clockDTO{
			ID:    c.ID,
			Date:  c.Date.Format("2006-01-02"),
			InAt:  c.InAt.Format(time.RFC3339),
			OutAt: c.OutAt.Format(time.RFC3339),
			Flags: c.Flags,
			Note:  c.Note,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CONTRACTS
// =============================================================================

// GetContract returns a contract and its rule catalog.
// GET /api/contracts/{id}
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Engine.Contracts.Contract(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Contract not found", err)
		return
	}
	rules, err := h.Engine.Contracts.Rules(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load contract rules", err)
		return
	}
	writeJSON(w, http.StatusOK, ContractDTO{Contract: c, Rules: rules.All()})
}

// SaveContract stores a contract and replaces its rule catalog.
// PUT /api/contracts/{id}
func (h *Handler) SaveContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SaveContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Contract == nil {
		writeError(w, http.StatusBadRequest, "contract is required", nil)
		return
	}
	req.Contract.ID = id

	if err := h.Store.SaveContract(r.Context(), req.Contract); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}
	for i := range req.Rules {
		req.Rules[i].ContractID = id
		if req.Rules[i].ID == "" {
			req.Rules[i].ID = freshID()
		}
	}
	if err := h.Store.SaveRules(r.Context(), id, req.Rules); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract rules", err)
		return
	}

	writeJSON(w, http.StatusOK, ContractDTO{Contract: req.Contract, Rules: req.Rules})
}

// =============================================================================
// ADMIN
// =============================================================================

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetDatabase clears all data (dev only).
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func orFresh(id string) string {
	if id != "" {
		return id
	}
	return freshID()
}

func freshID() string {
	return uuid.Must(uuid.NewV4()).String()
}
