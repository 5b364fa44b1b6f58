// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalogue, roster and circulation endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/items", h.HandleListItems)
	r.Get("/items/{id}", h.HandleGetItem)
	r.Get("/items/{id}/holds", h.HandleItemHolds)
	r.Get("/items/{id}/history", h.HandleItemHistory)

	r.Get("/users", h.HandleListUsers)
	r.Get("/users/{name}", h.HandleGetUser)

	r.Post("/circulation/checkout", h.HandleCheckout)
	r.Post("/circulation/return", h.HandleReturn)

	r.Post("/holds", h.HandlePlaceHold)
	r.Delete("/holds", h.HandleCancelHold)
	r.Get("/holds/position", h.HandleHoldPosition)

	r.Get("/audit", h.HandleAudit)
}

type patronItemRequest struct {
	Patron string `json:"patron"`
	ItemID int    `json:"item_id"`
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Items(r.Context()))
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	item, err := h.service.Item(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleItemHolds(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	names, err := h.service.HoldQueue(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "queue": names})
}

func (h *Handler) HandleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	events, err := h.service.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Users(r.Context()))
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.LookupUser(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req patronItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	checkout, err := h.service.BorrowItem(r.Context(), req.Patron, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkout)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req patronItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.ReturnItem(r.Context(), req.Patron, req.ItemID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandlePlaceHold(w http.ResponseWriter, r *http.Request) {
	var req patronItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	position, err := h.service.PlaceHold(r.Context(), req.Patron, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"item_id":  req.ItemID,
		"patron":   req.Patron,
		"position": position,
		"message":  "Hold placed successfully. You are #" + strconv.Itoa(position) + " in queue.",
	})
}

func (h *Handler) HandleCancelHold(w http.ResponseWriter, r *http.Request) {
	var req patronItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.CancelHold(r.Context(), req.Patron, req.ItemID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleHoldPosition(w http.ResponseWriter, r *http.Request) {
	patron := r.URL.Query().Get("patron")
	id, err := strconv.Atoi(r.URL.Query().Get("item_id"))
	if patron == "" || err != nil {
		http.Error(w, "patron and numeric item_id are required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item_id":  id,
		"patron":   patron,
		"position": h.service.HoldPosition(r.Context(), patron, id),
	})
}

func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	found := h.service.Audit(r.Context())
	if found == nil {
		found = []Inconsistency{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"consistent": len(found) == 0, "inconsistencies": found})
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps rejections onto HTTP statuses: not found 404, policy 409,
// consistency and anything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch KindOf(err) {
	case KindNotFound:
		status = http.StatusNotFound
	case KindPolicy:
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
