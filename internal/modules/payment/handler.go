package payment

import (
	"errors"
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

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments/vnpay/ipn", h.VNPayIPN)
	rg.GET("/payments/vnpay/return", h.VNPayReturn)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/refunds", h.RequestRefund)
	rg.PATCH("/refunds/:id/approve", h.ApproveRefund)
	rg.PATCH("/refunds/:id/reject", h.RejectRefund)
}

// VNPayIPN godoc
// @Summary      VNPay IPN callback
// @Description  Verifies the secure hash and applies the payment result once per gateway transaction
// @Tags         Payments
// @Produce      json
// @Success      200 {object} IPNResponse
// @Router       /payments/vnpay/ipn [get]
func (h *Handler) VNPayIPN(c *gin.Context) {
	res, err := h.service.HandleWebhook(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.logger.Warn("vnpay ipn rejected",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("txn_ref", c.Query("vnp_TxnRef")),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, ipnAck(err))
		return
	}
	h.logger.Info("vnpay ipn handled",
		zap.Int64("payment_id", res.PaymentID),
		zap.Int64("group_id", res.GroupID),
		zap.String("status", string(res.Status)),
	)
	c.JSON(http.StatusOK, ipnAck(nil))
}

// VNPayReturn handles the browser redirect after checkout. It goes through the same idempotent path as the IPN.
func (h *Handler) VNPayReturn(c *gin.Context) {
	res, err := h.service.HandleWebhook(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func ipnAck(err error) IPNResponse {
	switch {
	case err == nil:
		return IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case domain.IsForbidden(err):
		return IPNResponse{RspCode: "97", Message: "Invalid Checksum"}
	case domain.IsNotFound(err):
		return IPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, domain.ErrAmountMismatch):
		return IPNResponse{RspCode: "04", Message: "Invalid amount"}
	}
	return IPNResponse{RspCode: "99", Message: "Unknown error"}
}

// RequestRefund godoc
// @Summary      Request a refund for a paid booking
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Booking ID"
// @Param        body body RefundCreateRequest false "Reason"
// @Success      201 {object} domain.RefundRequest
// @Router       /bookings/{id}/refunds [post]
func (h *Handler) RequestRefund(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req RefundCreateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
	}

	r, err := h.service.RequestRefund(c.Request.Context(), actor, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

func (h *Handler) ApproveRefund(c *gin.Context) { h.review(c, true) }

func (h *Handler) RejectRefund(c *gin.Context) { h.review(c, false) }

func (h *Handler) review(c *gin.Context, approve bool) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}
	var req RefundReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
	}

	r, err := h.service.ReviewRefund(c.Request.Context(), actor, id, approve, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := response.Status(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("payment request failed", fields...)
	} else {
		h.logger.Info("payment request rejected", fields...)
	}
	response.FromError(c, err)
}

func actorAndID(c *gin.Context) (domain.Actor, int64, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return domain.Actor{}, 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid id")
		return domain.Actor{}, 0, false
	}
	return actor, id, true
}
