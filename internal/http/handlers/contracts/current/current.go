// Package current реализует HTTP-обработчик действующего контракта организации
// текущего пользователя вместе с контрактными ценами.
package current

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
)

// Service описывает поиск действующего контракта.
type Service interface {
	CurrentContract(ctx context.Context, user *models.User) (catalog.ContractView, error)
}

// Handler отдает действующий контракт.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Действующий корпоративный контракт
// @Tags Contracts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Контракта нет"
// @Router /contracts/current [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contracts.current"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	contract, err := h.service.CurrentContract(r.Context(), middlewarectx.CurrentUser(r.Context()))
	if err != nil {
		log.Info("no current contract", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"contract": contract,
	}))
}
