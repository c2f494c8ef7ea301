package medic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	"github.com/TANKominator5/crowdmedics-api/internal/middleware"
	"github.com/TANKominator5/crowdmedics-api/internal/service/medic"
)

type Handler struct {
	svc medic.Service
}

func NewHandler(svc medic.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	medics := r.Group("/medics")
	{
		medics.GET("/profile", h.GetProfile)
		medics.PUT("/profile", h.SubmitProfile)
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	session := middleware.SessionFromContext(c)

	profile, err := h.svc.GetProfile(c.Request.Context(), session)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) SubmitProfile(c *gin.Context) {
	var input medic.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session := middleware.SessionFromContext(c)
	profile, err := h.svc.SubmitProfile(c.Request.Context(), session, input)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}
