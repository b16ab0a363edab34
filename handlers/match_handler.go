package handlers

import (
	"net/http"
	"strconv"

	"github.com/fishram/Rankly/middleware"
	"github.com/fishram/Rankly/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Record(w http.ResponseWriter, r *http.Request) {
	var input services.RecordMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.RecordMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var seasonID *int
	if raw := r.URL.Query().Get("season_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			badRequestResponse(w, r, errInvalidSeasonIDQuery)
			return
		}
		seasonID = &id
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequestResponse(w, r, errInvalidLimitQuery)
			return
		}
		limit = n
	}

	matches, err := h.matchService.ListMatches(r.Context(), seasonID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Undo(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Тело опционально: prior_elo нужны только для старых матчей без
	// сохранённых дельт.
	var body struct {
		PriorElo1 *int `json:"prior_elo1"`
		PriorElo2 *int `json:"prior_elo2"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &body); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	input := services.UndoMatchInput{
		MatchID:         matchID,
		RequesterUserID: middleware.UserIDFromContext(r.Context()),
		IsAdmin:         middleware.IsAdminFromContext(r.Context()),
		PriorElo1:       body.PriorElo1,
		PriorElo2:       body.PriorElo2,
	}
	if err := h.matchService.UndoMatch(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
