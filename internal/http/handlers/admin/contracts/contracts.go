// Package contracts реализует управление корпоративными контрактами и их ценами.
// Даты принимаются в формате 2006-01-02 (UTC).
package contracts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/models"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
)

const dateLayout = "2006-01-02"

// ContractRequest — данные нового контракта.
type ContractRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
	CorporateName  string `json:"corporate_name" validate:"required"`
	EffectiveDate  string `json:"effective_date" validate:"required,datetime=2006-01-02"`
	ExpirationDate string `json:"expiration_date" validate:"required,datetime=2006-01-02"`
}

// PriceRequest — данные контрактной цены. Без даты окончания цена бессрочна.
type PriceRequest struct {
	ProductID      string  `json:"product_id" validate:"required"`
	Price          float64 `json:"price" validate:"gt=0"`
	EffectiveDate  string  `json:"effective_date" validate:"required,datetime=2006-01-02"`
	ExpirationDate string  `json:"expiration_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Service описывает операции с контрактами.
type Service interface {
	Contracts(ctx context.Context) ([]catalog.ContractView, error)
	CreateContract(ctx context.Context, in catalog.ContractInput) (models.Contract, error)
	ExpireContract(ctx context.Context, id string) (models.Contract, error)
	AddContractPrice(ctx context.Context, contractID string, in catalog.PriceInput) (models.ContractPrice, error)
}

// Handler обрабатывает запросы админки к контрактам.
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

// date разбирает дату, уже прошедшую валидацию.
func date(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// List godoc
// @Summary Контракты
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/contracts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.contracts.list")

	contracts, err := h.service.Contracts(r.Context())
	if err != nil {
		log.Error("failed to list contracts", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"contracts": contracts}))
}

// Create godoc
// @Summary Создать контракт
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ContractRequest true "Контракт"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/contracts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.contracts.create")

	var req ContractRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	contract, err := h.service.CreateContract(r.Context(), catalog.ContractInput{
		OrganizationID: req.OrganizationID,
		CorporateName:  req.CorporateName,
		EffectiveDate:  date(req.EffectiveDate),
		ExpirationDate: date(req.ExpirationDate),
	})
	if err != nil {
		log.Info("failed to create contract", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("contract created", slog.String("contract_id", contract.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"contract": contract}))
}

// Expire godoc
// @Summary Завершить контракт
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID контракта"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/contracts/{id}/expire [post]
func (h *Handler) Expire(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.contracts.expire")

	id := chi.URLParam(r, "id")
	contract, err := h.service.ExpireContract(r.Context(), id)
	if err != nil {
		log.Info("failed to expire contract", slog.String("contract_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("contract expired", slog.String("contract_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"contract": contract}))
}

// AddPrice godoc
// @Summary Добавить контрактную цену
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID контракта"
// @Param request body PriceRequest true "Цена"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/contracts/{id}/prices [post]
func (h *Handler) AddPrice(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.contracts.add_price")

	var req PriceRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	in := catalog.PriceInput{
		ProductID:     req.ProductID,
		Price:         req.Price,
		EffectiveDate: date(req.EffectiveDate),
	}
	if req.ExpirationDate != "" {
		exp := date(req.ExpirationDate)
		in.ExpirationDate = &exp
	}

	id := chi.URLParam(r, "id")
	price, err := h.service.AddContractPrice(r.Context(), id, in)
	if err != nil {
		log.Info("failed to add contract price", slog.String("contract_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("contract price added", slog.String("contract_id", id), slog.String("price_id", price.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{"price": price}))
}
