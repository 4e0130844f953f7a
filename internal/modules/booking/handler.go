package booking

import (
	"net/http"
	"strconv"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/middleware"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.OrNop(log)}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/sub-fields/:id/availability", h.GetAvailability)

	bookings := protected.Group("/bookings")
	{
		bookings.POST("/preview", h.PreviewBooking)
		bookings.POST("/simple", h.CreateSimpleBooking)
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/services", h.AddBookingService)
		bookings.PATCH("/:id/reschedule", h.Reschedule)
		bookings.PATCH("/:id/confirm", h.Confirm)
		bookings.PATCH("/:id/cancel", h.Cancel)
		bookings.PATCH("/:id/status", h.UpdateStatus)
	}
	protected.GET("/booking-groups/:id", h.GetGroup)
}

// PreviewBooking godoc
// @Summary Price a booking request without reserving anything
// @Tags Bookings
// @Accept json
// @Produce json
// @Param body body CreateBookingRequest true "Booking request"
// @Success 200 {object} PreviewResult
// @Router /bookings/preview [post]
func (h *Handler) PreviewBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.PreviewBooking(c.Request.Context(), actor, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// CreateBooking godoc
// @Summary Book one or more sub-field legs in a single checkout
// @Tags Bookings
// @Accept json
// @Produce json
// @Param body body CreateBookingRequest true "Booking request"
// @Success 201 {object} CreateBookingResult
// @Failure 409 {object} map[string]interface{}
// @Router /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	res, err := h.service.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) CreateSimpleBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateSimpleBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ClientIP = c.ClientIP()

	res, err := h.service.CreateSimpleBooking(c.Request.Context(), actor, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) AddBookingService(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req AddServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.service.AddBookingService(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) GetBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	b, err := h.service.GetBookingByID(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) GetGroup(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	g, err := h.service.GetGroup(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, g)
}

// ListBookings godoc
// @Summary List bookings visible to the caller
// @Tags Bookings
// @Produce json
// @Param status query string false "pending|confirmed|cancelled"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "page"
// @Param per_page query int false "per page"
// @Router /bookings [get]
func (h *Handler) ListBookings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var f ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters")
		return
	}

	list, err := h.service.ListBookings(c.Request.Context(), actor, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

func (h *Handler) Reschedule(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.service.Reschedule(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Confirm(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	b, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req CancelRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	view, err := h.service.GetAvailability(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := response.Status(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("path", c.FullPath()),
		zap.String("param_id", c.Param("id")),
		zap.Int("status", status),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("booking request failed", fields...)
	} else {
		h.logger.Info("booking request rejected", fields...)
	}
	response.FromError(c, err)
}

func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return domain.Actor{}, false
	}
	return actor, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid id")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	return true
}
