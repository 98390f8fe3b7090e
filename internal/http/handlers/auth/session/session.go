// Package session реализует HTTP-обработчик состояния текущей сессии.
package session

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/http/response"
	"github.com/magabrotheeeer/subscribepro/internal/models"
)

// State — состояние сессии для клиента.
type State struct {
	Phase              models.SessionPhase `json:"phase"`
	IsAuthenticated    bool                `json:"is_authenticated"`
	User               *models.User        `json:"user"`
	IsAdmin            bool                `json:"is_admin"`
	IsAdminOrCorporate bool                `json:"is_admin_or_corporate"`
}

// Handler отдает состояние сессии.
type Handler struct{}

// New создает Handler.
func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Состояние сессии
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /session [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, m, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		render.JSON(w, r, response.OKWithData(State{Phase: models.PhaseAnonymous}))
		return
	}
	st := m.State()
	render.JSON(w, r, response.OKWithData(State{
		Phase:              st.Phase,
		IsAuthenticated:    st.IsAuthenticated,
		User:               st.User,
		IsAdmin:            m.IsAdmin(),
		IsAdminOrCorporate: m.IsAdminOrCorporate(),
	}))
}
