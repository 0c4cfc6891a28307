package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/service"
)

// ReminderHandler handles HTTP requests for reminder lists and reminders.
type ReminderHandler struct {
	service *service.ReminderService
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(svc *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: svc}
}

// HandleLists handles GET /api/v1/lists requests.
func (h *ReminderHandler) HandleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.service.Lists(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleList handles GET /api/v1/lists/{id} requests.
func (h *ReminderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleReminders handles GET /api/v1/lists/{id}/reminders requests.
func (h *ReminderHandler) HandleReminders(w http.ResponseWriter, r *http.Request) {
	includeCompleted, err := queryBool(r, "includeCompleted")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("includeCompleted must be true or false"))
		return
	}

	reminders, err := h.service.Reminders(r.Context(), chi.URLParam(r, "id"), includeCompleted)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

// HandleCreateReminder handles POST /api/v1/lists/{id}/reminders requests.
func (h *ReminderHandler) HandleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reminder, err := h.service.CreateReminder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}

// HandleReminder handles GET /api/v1/reminders/{id} requests.
func (h *ReminderHandler) HandleReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.service.Reminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// HandleUpdateReminder handles PUT /api/v1/reminders/{id} requests.
func (h *ReminderHandler) HandleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reminder, err := h.service.UpdateReminder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// HandleDeleteReminder handles DELETE /api/v1/reminders/{id} requests.
func (h *ReminderHandler) HandleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReminder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
