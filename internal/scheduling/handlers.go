package scheduling

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"hallbooking/internal/api"
	"hallbooking/internal/auth"
	"hallbooking/internal/reservation"
	"hallbooking/internal/timerange"
)

type Handlers struct {
	Svc      *Service
	Validate *validator.Validate
}

func NewHandlers(svc *Service) Handlers {
	return Handlers{Svc: svc, Validate: validator.New()}
}

type SubmitBody struct {
	HallID  string   `json:"hallId" validate:"required,uuid"`
	Purpose string   `json:"purpose" validate:"required,max=500"`
	Seats   int      `json:"seats" validate:"required,gte=1"`
	Dates   []string `json:"dates" validate:"required,min=1,max=31,dive,datetime=2006-01-02"`
	From    string   `json:"from" validate:"required"`
	To      string   `json:"to" validate:"required"`
	Contact string   `json:"contact" validate:"omitempty,max=256"`
}

type ReasonBody struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type ResolveBody struct {
	Approve *bool `json:"approve" validate:"required"`
}

func (h Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var body SubmitBody
	if !h.decode(w, r, &body) {
		return
	}
	dates, err := timerange.ParseDates(body.Dates)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	win, err := timerange.ParseWindow(body.From, body.To)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	res, err := h.Svc.Submit(r.Context(), actor, SubmitRequest{
		HallID:  body.HallID,
		Purpose: body.Purpose,
		Seats:   body.Seats,
		Dates:   dates,
		Window:  win,
		Contact: body.Contact,
	})
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, res)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := reservation.Filter{
		HallID:      q.Get("hallId"),
		RequesterID: q.Get("requesterId"),
	}
	if s := q.Get("status"); s != "" {
		st, err := reservation.ParseStatus(s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
			return
		}
		f.Status = st
	}
	if s := q.Get("date"); s != "" {
		d, err := timerange.ParseDate(s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid date")
			return
		}
		f.Date = &d
	}

	items, err := h.Svc.List(r.Context(), actor, f)
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	res, err := h.Svc.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	items, err := h.Svc.History(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	h.respond(w)(h.Svc.Approve(r.Context(), actor, chi.URLParam(r, "id")))
}

func (h Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body ReasonBody
	if !h.decode(w, r, &body) {
		return
	}
	h.respond(w)(h.Svc.Reject(r.Context(), actor, chi.URLParam(r, "id"), body.Reason))
}

func (h Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body ReasonBody
	if !h.decode(w, r, &body) {
		return
	}
	h.respond(w)(h.Svc.Cancel(r.Context(), actor, chi.URLParam(r, "id"), body.Reason))
}

func (h Handlers) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body ReasonBody
	if !h.decode(w, r, &body) {
		return
	}
	h.respond(w)(h.Svc.RequestCancellation(r.Context(), actor, chi.URLParam(r, "id"), body.Reason))
}

func (h Handlers) ResolveCancellation(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var body ResolveBody
	if !h.decode(w, r, &body) {
		return
	}
	h.respond(w)(h.Svc.ResolveCancellation(r.Context(), actor, chi.URLParam(r, "id"), *body.Approve))
}

func (h Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if _, err := h.Svc.Withdraw(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		api.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	q := r.URL.Query()
	var raw []string
	for _, v := range q["dates"] {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				raw = append(raw, d)
			}
		}
	}
	dates, err := timerange.ParseDates(raw)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	win, err := timerange.ParseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	out, err := h.Svc.CheckAvailability(r.Context(), chi.URLParam(r, "id"), dates, win)
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}

func (h Handlers) Usage(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := timerange.ParseDate(q.Get("from"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid from date")
		return
	}
	to, err := timerange.ParseDate(q.Get("to"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid to date")
		return
	}

	out, err := h.Svc.HallUsage(r.Context(), actor, chi.URLParam(r, "id"), from, to)
	if err != nil {
		api.WriteServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, out)
}

func (h Handlers) respond(w http.ResponseWriter) func(*reservation.Reservation, error) {
	return func(res *reservation.Reservation, err error) {
		if err != nil {
			api.WriteServiceError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

func (h Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		api.WriteServiceError(w, err)
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id := api.IdentityFromContext(r.Context())
	if id == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return auth.Identity{}, false
	}
	return *id, true
}
