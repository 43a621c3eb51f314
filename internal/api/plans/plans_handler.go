package plans

import (
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/plansapp/go-plans-api/app/observability/metrics"
	"github.com/plansapp/go-plans-api/internal/api"
	"github.com/plansapp/go-plans-api/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	metrics.InitAppMetrics()
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics.Get(),
	}
}

// Suggest handles POST /plans/suggest.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlansHandler").Start(r.Context(), "Suggest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/plans/suggest"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Suggest"))

	var req types.SuggestRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Handle) == "" {
		l.WarnContext(ctx, "Suggest request missing handle")
		span.SetStatus(codes.Error, "Missing handle")
		api.ErrorResponse(w, r, http.StatusBadRequest, "handle is required")
		return
	}

	resp, err := h.service.Suggest(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Suggest failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Suggest failed")
		h.metrics.SuggestRequestsTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("ok", false)))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to generate suggestions")
		return
	}

	h.metrics.SuggestRequestsTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("ok", true)))
	span.SetAttributes(attribute.Int("suggestions.count", len(resp.Suggestions)))
	span.SetStatus(codes.Ok, "Suggestions generated")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Feed handles POST /plans/feed. A total generation failure still returns
// the fallback suggestions in the body, with a 500 status.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlansHandler").Start(r.Context(), "Feed", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRoute("/plans/feed"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Feed"))

	var req types.FeedRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Feed(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Feed failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Feed failed")
		h.metrics.FeedRequestsTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("ok", false)))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to generate feed")
		return
	}

	status := http.StatusOK
	if !resp.Ok {
		status = http.StatusInternalServerError
	}
	h.metrics.FeedRequestsTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("ok", resp.Ok)))
	span.SetAttributes(attribute.Int("suggestions.count", len(resp.Suggestions)))
	span.SetStatus(codes.Ok, "Feed generated")
	api.WriteJSONResponse(w, r, status, resp)
}
