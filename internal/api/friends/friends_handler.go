package friends

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/internal/api"
	"github.com/plansapp/go-plans-api/internal/api/auth"
	"github.com/plansapp/go-plans-api/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid user identity")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /friends.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FriendsHandler").Start(r.Context(), "List", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/friends"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "List"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list friends", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list friends")
		return
	}

	span.SetStatus(codes.Ok, "Friends listed")
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// SendRequest handles POST /friends/request.
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FriendsHandler").Start(r.Context(), "SendRequest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/friends/request"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SendRequest"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req types.SendFriendRequestRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Handle == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "handle is required")
		return
	}

	receiver, err := h.service.SendRequest(ctx, userID, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "No user with that handle")
		case errors.Is(err, ErrSelfRequest),
			errors.Is(err, ErrAlreadyFriends),
			errors.Is(err, ErrDuplicateRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			l.ErrorContext(ctx, "Failed to send friend request", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Send failed")
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to send friend request")
		}
		return
	}

	span.SetStatus(codes.Ok, "Friend request sent")
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"ok":       true,
		"receiver": receiver,
	})
}

func (h *Handler) requestIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeRequestActionError(w http.ResponseWriter, r *http.Request, l *slog.Logger, span trace.Span, err error, action string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Friend request not found")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Only the receiver can act on this request")
	default:
		l.ErrorContext(r.Context(), "Failed to "+action+" friend request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Action failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to "+action+" friend request")
	}
}

// AcceptRequest handles POST /friends/request/{requestID}/accept.
func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FriendsHandler").Start(r.Context(), "AcceptRequest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/friends/request/{requestID}/accept"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AcceptRequest"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := h.requestIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.AcceptRequest(ctx, userID, requestID); err != nil {
		h.writeRequestActionError(w, r, l, span, err, "accept")
		return
	}

	span.SetStatus(codes.Ok, "Friend request accepted")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"ok": true})
}

// RejectRequest handles POST /friends/request/{requestID}/reject.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FriendsHandler").Start(r.Context(), "RejectRequest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/friends/request/{requestID}/reject"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RejectRequest"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := h.requestIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.RejectRequest(ctx, userID, requestID); err != nil {
		h.writeRequestActionError(w, r, l, span, err, "reject")
		return
	}

	span.SetStatus(codes.Ok, "Friend request rejected")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"ok": true})
}

// RemoveFriend handles DELETE /friends/{friendID}.
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FriendsHandler").Start(r.Context(), "RemoveFriend", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/friends/{friendID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RemoveFriend"))

	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	friendID, err := uuid.Parse(chi.URLParam(r, "friendID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	if err := h.service.RemoveFriend(ctx, userID, friendID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Friendship not found")
			return
		}
		l.ErrorContext(ctx, "Failed to remove friend", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remove failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove friend")
		return
	}

	span.SetStatus(codes.Ok, "Friend removed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"ok": true})
}
