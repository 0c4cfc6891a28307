package handler

import (
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/go-chi/chi/v5"

	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/service"
)

const icsProductID = "-//icloudbridge//bridge//EN"

// CalendarHandler handles HTTP requests for calendars and events.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// HandleCalendars handles GET /api/v1/calendars requests.
func (h *CalendarHandler) HandleCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.service.Calendars(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendars)
}

// HandleCalendar handles GET /api/v1/calendars/{id} requests.
func (h *CalendarHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	calendar, err := h.service.Calendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendar)
}

// HandleEvents handles GET /api/v1/calendars/{id}/events requests.
func (h *CalendarHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.service.Events(r.Context(), chi.URLParam(r, "id"), q.Get("start"), q.Get("end"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleEventsICS handles GET /api/v1/calendars/{id}/events.ics requests. The
// window is expanded, so every occurrence is a standalone VEVENT with its own
// UID and no RRULE or RECURRENCE-ID.
func (h *CalendarHandler) HandleEventsICS(w http.ResponseWriter, r *http.Request) {
	calendarID := chi.URLParam(r, "id")
	q := r.URL.Query()

	calendar, err := h.service.Calendar(r.Context(), calendarID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	events, err := h.service.Events(r.Context(), calendarID, q.Get("start"), q.Get("end"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", calendarID+".ics"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(buildICS(calendar, events, time.Now().UTC())))
}

func buildICS(calendar model.Calendar, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName(calendar.Title)
	cal.SetXWRCalName(calendar.Title)
	if calendar.Color != "" {
		cal.SetColor(calendar.Color)
	}

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		if e.Notes != "" {
			ve.SetDescription(e.Notes)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.IsAllDay {
			ve.SetAllDayStartAt(e.StartDate)
			ve.SetAllDayEndAt(e.EndDate)
		} else {
			ve.SetStartAt(e.StartDate)
			ve.SetEndAt(e.EndDate)
		}
	}
	return cal.Serialize()
}

// HandleCreateEvent handles POST /api/v1/calendars/{id}/events requests.
func (h *CalendarHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	event, err := h.service.CreateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleEvent handles GET /api/v1/events/{id} requests.
func (h *CalendarHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Event(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleUpdateEvent handles PUT /api/v1/events/{id}?span= requests.
func (h *CalendarHandler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("span"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleDeleteEvent handles DELETE /api/v1/events/{id}?span= requests.
func (h *CalendarHandler) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteEvent(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("span")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
