package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payflow-labs/payflow/internal/notifications"
	"github.com/payflow-labs/payflow/internal/validation"
)

// RegisterNotificationsRoutes registers routes for the notification API.
func RegisterNotificationsRoutes(r *gin.Engine, notifier *notifications.Notifier) {
	v := validation.New()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/notifications", func(c *gin.Context) {
		var req validation.NotificationRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		notifier.Send(c.Request.Context(), req.Type, req.Recipient, req.Message)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})
}
