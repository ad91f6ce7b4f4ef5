package handler

import (
	"net/http"

	"github.com/ivision/agency-books/internal/infra/notify"
	"github.com/ivision/agency-books/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type refreshResponse struct {
	Summary string `json:"summary"`
}

func analysisStatusHandler(controller *service.RefreshController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analysis")
		defer span.End()

		writeJSON(w, http.StatusOK, controller.Status(ctx))
	}
}

func analysisRefreshHandler(controller *service.RefreshController, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analysis/refresh")
		defer span.End()

		text, err := controller.RequestRefresh(ctx)
		if err != nil {
			span.RecordError(err)
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{Summary: text})
	}
}

// ============================================================
// Notifications
// ============================================================

func listNotificationsHandler(sink *notify.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sink.Active())
	}
}

func dismissNotificationHandler(sink *notify.Sink, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sink.Dismiss(chi.URLParam(r, "notificationId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
