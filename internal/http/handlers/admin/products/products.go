// Package products реализует управление каталогом из админки.
package products

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
)

// Request — данные продукта.
type Request struct {
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	Category         string  `json:"category" validate:"required"`
	ImageURL         string  `json:"image_url"`
	RegularPrice     float64 `json:"regular_price" validate:"gt=0"`
}

func (r Request) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:             r.Name,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		Category:         r.Category,
		ImageURL:         r.ImageURL,
		RegularPrice:     r.RegularPrice,
	}
}

// Service описывает операции каталога, доступные администратору.
type Service interface {
	Products(ctx context.Context, user *models.User, filter catalog.ProductFilter) ([]catalog.ProductView, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, id string, in catalog.ProductInput) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Handler обрабатывает запросы админки к каталогу.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger) (Request, bool) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return Request{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return Request{}, false
	}
	return req, true
}

// List godoc
// @Summary Продукты каталога
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Подстрока в названии или описании"
// @Success 200 {object} response.Response
// @Router /admin/products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.products.list")

	filter := catalog.ProductFilter{Search: r.URL.Query().Get("search")}
	products, err := h.service.Products(r.Context(), middlewarectx.CurrentUser(r.Context()), filter)
	if err != nil {
		log.Error("failed to list products", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"products": products}))
}

// Create godoc
// @Summary Создать продукт
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Продукт"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/products [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.products.create")

	req, ok := h.decode(w, r, log)
	if !ok {
		return
	}
	product, err := h.service.CreateProduct(r.Context(), req.input())
	if err != nil {
		log.Error("failed to create product", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("product created", slog.String("product_id", product.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"product": product}))
}

// Update godoc
// @Summary Изменить продукт
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID продукта"
// @Param request body Request true "Продукт"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/products/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.products.update")

	req, ok := h.decode(w, r, log)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	product, err := h.service.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		log.Info("failed to update product", slog.String("product_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("product updated", slog.String("product_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"product": product}))
}

// Delete godoc
// @Summary Удалить продукт
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID продукта"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/products/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.products.delete")

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		log.Info("failed to delete product", slog.String("product_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("product deleted", slog.String("product_id", id))
	render.JSON(w, r, response.OK())
}
