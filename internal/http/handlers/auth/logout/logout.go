// Package logout реализует выход из сессии. Выход всегда завершается успешно.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/http/response"
)

// Service описывает завершение сессии.
type Service interface {
	Logout(ctx context.Context, sessionID string)
}

// Handler обрабатывает выход.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if id, _, ok := middlewarectx.SessionFrom(r.Context()); ok {
		h.service.Logout(r.Context(), id)
		log.Info("session closed", slog.String("session_id", id))
	}
	render.JSON(w, r, response.OK())
}
