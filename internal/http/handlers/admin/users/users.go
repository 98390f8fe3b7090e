// Package users реализует список пользователей для админки.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/services/accounts"
)

// Service описывает поиск пользователей.
type Service interface {
	ListUsers(ctx context.Context, search string) ([]accounts.UserSummary, error)
}

// Handler отдает пользователей с числом подписок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Пользователи
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Подстрока имени или email"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"users": users}))
}
