// Package list реализует HTTP-обработчик каталога продуктов.
//
// Для корпоративного клиента с действующим контрактом цены берутся из контракта,
// остальные видят обычные цены.
package list

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

// Service описывает получение каталога с ценами для пользователя.
type Service interface {
	Products(ctx context.Context, user *models.User, filter catalog.ProductFilter) ([]catalog.ProductView, error)
	Categories(ctx context.Context) ([]string, error)
}

// Handler обрабатывает запросы списка продуктов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Каталог продуктов
// @Tags Products
// @Produce json
// @Param search query string false "Подстрока в названии или описании, без учета регистра"
// @Param category query string false "Категория"
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Router /products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.products.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	query := r.URL.Query()
	filter := catalog.ProductFilter{
		Search:   query.Get("search"),
		Category: query.Get("category"),
	}

	products, err := h.service.Products(r.Context(), middlewarectx.CurrentUser(r.Context()), filter)
	if err != nil {
		log.Error("failed to list products", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	// категории считаются по всему каталогу, чтобы фильтр можно было сменить
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		log.Error("failed to list categories", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Debug("products listed", slog.Int("count", len(products)), slog.String("search", filter.Search), slog.String("category", filter.Category))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"products":   products,
		"categories": categories,
	}))
}
