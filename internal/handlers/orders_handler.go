package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/events"
	"github.com/payflow-labs/payflow/internal/orders"
	"github.com/payflow-labs/payflow/internal/validation"
)

// OrdersHandlerConfig groups dependencies for the orders API.
type OrdersHandlerConfig struct {
	Store     *orders.Store
	Publisher *aws.Publisher
	Logger    *zap.Logger
}

// RegisterOrdersRoutes registers routes for the order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg OrdersHandlerConfig) {
	v := validation.New()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		now := time.Now().UTC()
		order := orders.Order{
			OrderID:       uuid.NewString(),
			UserID:        req.UserID,
			Amount:        req.Amount,
			ProductIDs:    req.ProductIDs,
			Status:        orders.StatusCreated,
			PaymentStatus: orders.PaymentPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := cfg.Store.Create(ctx, order); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_create_failed", "detail": err.Error()})
			return
		}

		// The order is durable at this point. Event delivery is best effort;
		// a failed publish is logged and counted, never surfaced to the client.
		cfg.Publisher.PublishLogged(ctx, events.TypeOrderCreated,
			events.NewOrderCreated(order.OrderID, order.UserID, order.Amount))

		c.Header("Location", "/orders/"+order.OrderID)
		c.JSON(http.StatusCreated, gin.H{
			"order_id":       order.OrderID,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed", "detail": err.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	// Direct status update for deployments running without the payment event
	// queue. The same no-regress guard applies as in the projection worker.
	r.PUT("/orders/:id/payment-status", func(c *gin.Context) {
		ctx := c.Request.Context()
		orderID := c.Param("id")

		var req validation.UpdatePaymentStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		err := cfg.Store.ApplyPaymentResult(ctx, orderID, req.PaymentStatus)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"order_id": orderID, "payment_status": req.PaymentStatus})
			return
		}
		if err != orders.ErrStatusMismatch {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_update_failed", "detail": err.Error()})
			return
		}

		order, getErr := cfg.Store.Get(ctx, orderID)
		if getErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed", "detail": getErr.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		if order.PaymentStatus == req.PaymentStatus {
			// duplicate of an already-applied result
			c.JSON(http.StatusOK, gin.H{"order_id": orderID, "payment_status": order.PaymentStatus})
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":          "payment_status_already_set",
			"payment_status": order.PaymentStatus,
		})
	})
}
