package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
)

type preferencesPayload struct {
	MorningTime      string `json:"morning_time"`
	AfternoonTime    string `json:"afternoon_time"`
	MorningEnabled   *bool  `json:"morning_enabled"`
	AfternoonEnabled *bool  `json:"afternoon_enabled"`
}

// subscriptionPayload mirrors PushSubscription.toJSON() in the browser.
type subscriptionPayload struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type removeSubscriptionPayload struct {
	Endpoint string `json:"endpoint"`
}

func (h *httpHandler) handleGetPreferences(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	preference, err := h.reminders.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preference)
}

func (h *httpHandler) handleUpdatePreferences(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request preferencesPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	preference, err := h.reminders.UpdatePreferences(c.Request.Context(), userID, reminders.PreferencesInput{
		MorningTime:      request.MorningTime,
		AfternoonTime:    request.AfternoonTime,
		MorningEnabled:   request.MorningEnabled,
		AfternoonEnabled: request.AfternoonEnabled,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preference)
}

func (h *httpHandler) handleRegisterSubscription(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request subscriptionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	subscription, err := h.reminders.RegisterSubscription(c.Request.Context(), userID, reminders.SubscriptionInput{
		Endpoint: request.Endpoint,
		P256dh:   request.Keys.P256dh,
		Auth:     request.Keys.Auth,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"endpoint": subscription.Endpoint, "created_at": subscription.CreatedAt})
}

func (h *httpHandler) handleRemoveSubscription(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request removeSubscriptionPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.reminders.RemoveSubscription(c.Request.Context(), userID, request.Endpoint); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handlePushTest(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	summary, err := h.reminders.SendTest(c.Request.Context(), userID.String())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
