package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/gateway"
	"github.com/payflow-labs/payflow/internal/idempotency"
	"github.com/payflow-labs/payflow/internal/payments"
	"github.com/payflow-labs/payflow/internal/validation"
)

// PaymentsHandlerConfig groups dependencies for the payments API.
type PaymentsHandlerConfig struct {
	Service     *payments.Service
	Idempotency *idempotency.Store
	Metrics     *aws.Metrics
	Logger      *zap.Logger
}

// RegisterPaymentsRoutes registers routes for the payment API.
func RegisterPaymentsRoutes(r *gin.Engine, cfg PaymentsHandlerConfig) {
	v := validation.New()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/payments", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreatePaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		// Client-supplied idempotency key, or the order-derived key so a
		// header-less client still collapses onto one payment per order.
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey == "" {
			idempKey = payments.IdempotencyKeyForOrder(req.OrderID)
		}

		ticket, err := cfg.Idempotency.Begin(ctx, idempKey, uuid.NewString())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed", "detail": err.Error()})
			return
		}
		if !ticket.Proceed {
			replayIdempotent(c, ticket.Existing)
			return
		}

		payment, created, err := cfg.Service.Create(ctx, payments.CreatePaymentRequest{
			OrderID:        req.OrderID,
			UserID:         req.UserID,
			Amount:         req.Amount,
			IdempotencyKey: idempKey,
		})
		if err != nil {
			_ = cfg.Idempotency.MarkFailed(ctx, idempKey, err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment_create_failed", "detail": err.Error()})
			return
		}

		status := http.StatusCreated
		if !created {
			// the order already carries a payment from another key
			status = http.StatusOK
		}
		body, _ := json.Marshal(payment)
		_ = cfg.Idempotency.MarkDone(ctx, idempKey, string(body), status)

		c.JSON(status, payment)
	})

	r.GET("/payments/:id", func(c *gin.Context) {
		payment, err := cfg.Service.GetByPaymentID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment_lookup_failed", "detail": err.Error()})
			return
		}
		if payment == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
			return
		}
		c.JSON(http.StatusOK, payment)
	})

	r.GET("/orders/:orderID/payment", func(c *gin.Context) {
		payment, err := cfg.Service.GetByOrderID(c.Request.Context(), c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment_lookup_failed", "detail": err.Error()})
			return
		}
		if payment == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
			return
		}
		c.JSON(http.StatusOK, payment)
	})

	r.POST("/orders/:orderID/payment/initiate", func(c *gin.Context) {
		ref, err := cfg.Service.Initiate(c.Request.Context(), c.Param("orderID"))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, ref)
		case errors.Is(err, payments.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
		case errors.Is(err, payments.ErrInvalidState):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_not_initiable", "detail": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "initiate_failed", "detail": err.Error()})
		}
	})

	r.GET("/orders/:orderID/payment/razorpay", func(c *gin.Context) {
		ref, err := cfg.Service.GetGatewayOrder(c.Request.Context(), c.Param("orderID"))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, ref)
		case errors.Is(err, payments.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "detail": err.Error()})
		}
	})

	r.POST("/payments/webhook/razorpay", func(c *gin.Context) {
		ctx := c.Request.Context()

		signature := c.GetHeader("X-Razorpay-Signature")
		if signature == "" {
			cfg.Metrics.CountWebhookRejected(ctx, "missing_signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_signature"})
			return
		}

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
			return
		}

		err = cfg.Service.HandleWebhook(ctx, payload, signature)
		switch {
		case err == nil:
			// acknowledged: processed, duplicate, or deliberately dropped
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		case errors.Is(err, gateway.ErrInvalidSignature):
			cfg.Metrics.CountWebhookRejected(ctx, "invalid_signature")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
		case errors.Is(err, gateway.ErrNotConfigured):
			// Config problem on our side: 500 keeps the gateway retrying
			// until the secret is fixed, a 400 would discard the outcome.
			cfg.Metrics.CountWebhookRejected(ctx, "not_configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_not_configured"})
		default:
			// transient failure: Razorpay retries non-2xx deliveries
			cfg.Logger.Error("webhook processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_failed"})
		}
	})
}

// replayIdempotent serves a repeated request from the stored idempotency
// record instead of re-running the operation.
func replayIdempotent(c *gin.Context, rec *idempotency.Record) {
	if rec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_record_missing"})
		return
	}
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment_id": rec.EntityID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "detail": rec.Note})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}
