package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	"github.com/TANKominator5/crowdmedics-api/internal/middleware"
	"github.com/TANKominator5/crowdmedics-api/internal/model"
	clientService "github.com/TANKominator5/crowdmedics-api/internal/service/client"
	medicService "github.com/TANKominator5/crowdmedics-api/internal/service/medic"
	sosService "github.com/TANKominator5/crowdmedics-api/internal/service/sos"
)

// Handler serves the moderation dashboard: medic verification queues,
// recent SOS activity, and the client roster.
type Handler struct {
	medicSvc  medicService.Service
	sosSvc    sosService.Service
	clientSvc clientService.Service
}

func NewHandler(medicSvc medicService.Service, sosSvc sosService.Service, clientSvc clientService.Service) *Handler {
	return &Handler{
		medicSvc:  medicSvc,
		sosSvc:    sosSvc,
		clientSvc: clientSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/admin")
	{
		group.GET("/medics", h.ListMedics)
		group.POST("/medics/:id/approve", h.ApproveMedic)
		group.POST("/medics/:id/reject", h.RejectMedic)
		group.GET("/sos/recent", h.RecentSOS)
		group.GET("/clients", h.ListClients)
	}
}

// ListMedics returns all medics, or one verification partition when the
// status query parameter is set.
func (h *Handler) ListMedics(c *gin.Context) {
	session := middleware.SessionFromContext(c)

	raw := c.Query("status")
	if raw == "" {
		medics, err := h.medicSvc.ListAll(c.Request.Context(), session)
		if err != nil {
			handler.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(medics))
		return
	}

	status := model.NormalizeVerificationStatus(raw)
	medics, err := h.medicSvc.ListByStatus(c.Request.Context(), session, status)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(medics))
}

func (h *Handler) ApproveMedic(c *gin.Context) {
	h.decide(c, h.medicSvc.Approve)
}

func (h *Handler) RejectMedic(c *gin.Context) {
	h.decide(c, h.medicSvc.Reject)
}

func (h *Handler) decide(c *gin.Context, fn func(context.Context, model.Session, uuid.UUID) (*model.Medic, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medic ID"))
		return
	}

	session := middleware.SessionFromContext(c)
	medic, err := fn(c.Request.Context(), session, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(medic))
}

func (h *Handler) RecentSOS(c *gin.Context) {
	session := middleware.SessionFromContext(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	requests, err := h.sosSvc.RecentAcrossSystem(c.Request.Context(), session, limit)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) ListClients(c *gin.Context) {
	session := middleware.SessionFromContext(c)

	clients, err := h.clientSvc.ListAll(c.Request.Context(), session)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clients))
}
