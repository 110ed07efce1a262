package scheduling

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hallbooking/internal/api"
)

type HallBody struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Capacity   int      `json:"capacity" validate:"required,gte=1"`
	Facilities []string `json:"facilities" validate:"omitempty,dive,max=100"`
	Active     *bool    `json:"active"`
}

func (b HallBody) input() HallInput {
	return HallInput{Name: b.Name, Capacity: b.Capacity, Facilities: b.Facilities, Active: b.Active}
}

func (h Handlers) ListHalls(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	// Only admins see inactive halls, and only when they ask.
	activeOnly := !(actor.IsAdmin() && r.URL.Query().Get("all") == "true")
	items, err := h.Svc.ListHalls(r.Context(), activeOnly)
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) GetHall(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	out, err := h.Svc.GetHall(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}

func (h Handlers) CreateHall(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body HallBody
	if !h.decode(w, r, &body) {
		return
	}
	out, err := h.Svc.CreateHall(r.Context(), actor, body.input())
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, out)
}

func (h Handlers) UpdateHall(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body HallBody
	if !h.decode(w, r, &body) {
		return
	}
	out, err := h.Svc.UpdateHall(r.Context(), actor, chi.URLParam(r, "id"), body.input())
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}

func (h Handlers) DeleteHall(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if err := h.Svc.DeleteHall(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		api.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
