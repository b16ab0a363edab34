package handlers

import (
	"net/http"
	"time"

	"github.com/fishram/Rankly/services"
)

type SeasonHandler struct {
	seasonService services.SeasonService
}

func NewSeasonHandler(seasonService services.SeasonService) *SeasonHandler {
	return &SeasonHandler{seasonService: seasonService}
}

func (h *SeasonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateSeasonInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	season, err := h.seasonService.CreateSeason(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"season": season}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SeasonHandler) List(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasonService.ListSeasons(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"seasons": seasons}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SeasonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	detail, err := h.seasonService.GetSeason(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, detail, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SeasonHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var body struct {
		EndDate *time.Time `json:"end_date"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &body); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	endDate := time.Now()
	if body.EndDate != nil {
		endDate = *body.EndDate
	}

	season, err := h.seasonService.EndSeason(r.Context(), id, endDate)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"season": season}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SeasonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.seasonService.DeleteSeason(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
