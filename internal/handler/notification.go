package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/amancores/internal/repository"
	"github.com/appdotbuilder/amancores/internal/service"
)

// NotificationHandler exposes notifications over HTTP.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

type createNotificationRequest struct {
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RelatedID *int64 `json:"related_id"`
}

// HandleCreate delivers a notification.
//
// POST /api/notifications
func (h *NotificationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	n, err := h.notifications.Create(r.Context(), req.UserID, req.Type, req.Title, req.Message, req.RelatedID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, n)
}

// HandleMarkRead marks one notification read. The response reports
// whether a row was updated; an unknown id yields read=false, not 404.
//
// POST /api/notifications/{id}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.notifications.MarkRead(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": updated})
}

// HandleMarkAllRead marks all of a user's notifications read.
//
// POST /api/users/{id}/notifications/read_all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.notifications.MarkAllRead(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListByUser returns a user's notifications, newest first, with
// optional is_read and type filters.
//
// GET /api/users/{id}/notifications?is_read=&type=&limit=&offset=
func (h *NotificationHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	f := repository.NotificationFilter{
		IsRead: queryBoolPtr(r, "is_read"),
		Type:   queryStringPtr(r, "type"),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}

	notifications, err := h.notifications.ListByUser(r.Context(), userID, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// HandleCountUnread returns the user's unread notification count.
//
// GET /api/users/{id}/notifications/unread_count
func (h *NotificationHandler) HandleCountUnread(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}
