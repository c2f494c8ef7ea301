package client

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	"github.com/TANKominator5/crowdmedics-api/internal/middleware"
	"github.com/TANKominator5/crowdmedics-api/internal/service/client"
)

type Handler struct {
	svc client.Service
}

func NewHandler(svc client.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clients := r.Group("/clients")
	{
		clients.GET("/profile", h.GetProfile)
		clients.PUT("/profile", h.UpdateContact)
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

func (h *Handler) UpdateContact(c *gin.Context) {
	var input client.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session := middleware.SessionFromContext(c)
	profile, err := h.svc.UpdateContact(c.Request.Context(), session, input)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}
