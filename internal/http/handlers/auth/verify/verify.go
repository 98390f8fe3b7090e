// Package verify реализует подтверждение email по токену из письма.
// Токен принимается из JSON-тела POST-запроса или из параметра token GET-запроса.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
)

// Request — токен подтверждения.
type Request struct {
	Token string `json:"token"`
}

// Service описывает подтверждение email.
type Service interface {
	VerifyEmail(ctx context.Context, token string) (bool, error)
}

// Handler обрабатывает подтверждение email.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение email
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request false "Токен подтверждения"
// @Param token query string false "Токен подтверждения"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Недействительный токен"
// @Router /verify-email [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if r.Method == http.MethodPost {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		token = req.Token
	}

	ok, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		log.Info("email verification failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("email verified")
	render.JSON(w, r, response.OKWithData(map[string]any{"verified": ok}))
}
