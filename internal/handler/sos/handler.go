package sos

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	"github.com/TANKominator5/crowdmedics-api/internal/middleware"
	"github.com/TANKominator5/crowdmedics-api/internal/service/matcher"
	"github.com/TANKominator5/crowdmedics-api/internal/service/sos"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
)

type Handler struct {
	svc        sos.Service
	matcherSvc matcher.Service
}

func NewHandler(svc sos.Service, matcherSvc matcher.Service) *Handler {
	return &Handler{svc: svc, matcherSvc: matcherSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/sos")
	{
		group.POST("", h.Create)
		group.GET("/latest", h.Latest)
		group.GET("/nearby", h.Nearby)
		group.POST("/:id/accept", h.Accept)
		group.POST("/:id/resolve", h.Resolve)
		group.GET("/:id/medics", h.EligibleMedics)
	}
}

type createRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session := middleware.SessionFromContext(c)
	created, err := h.svc.Create(c.Request.Context(), session, geo.Point{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Latest(c *gin.Context) {
	session := middleware.SessionFromContext(c)

	latest, err := h.svc.LatestForClient(c.Request.Context(), session)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(latest))
}

// Nearby lists open requests around the calling medic's stored location.
func (h *Handler) Nearby(c *gin.Context) {
	radiusKm, err := radiusParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid radius_km"))
		return
	}

	session := middleware.SessionFromContext(c)
	matches, err := h.svc.NearbyForMedic(c.Request.Context(), session, radiusKm)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(matches))
}

func (h *Handler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid sos request ID"))
		return
	}

	session := middleware.SessionFromContext(c)
	accepted, err := h.svc.Accept(c.Request.Context(), session, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(accepted))
}

func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid sos request ID"))
		return
	}

	session := middleware.SessionFromContext(c)
	resolved, err := h.svc.Resolve(c.Request.Context(), session, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resolved))
}

// EligibleMedics returns the verified medics ranked by distance from the
// request's location. The requester must own the request or be an admin.
func (h *Handler) EligibleMedics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid sos request ID"))
		return
	}

	radiusKm, err := radiusParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid radius_km"))
		return
	}

	session := middleware.SessionFromContext(c)
	req, err := h.svc.GetOwned(c.Request.Context(), session, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	point := geo.DecodePoint(geo.MicroPoint{
		Latitude:  req.LatMicro,
		Longitude: req.LonMicro,
	})
	matches, err := h.matcherSvc.FindEligibleMedics(c.Request.Context(), point, radiusKm)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(matches))
}

func radiusParam(c *gin.Context) (float64, error) {
	raw := c.Query("radius_km")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
