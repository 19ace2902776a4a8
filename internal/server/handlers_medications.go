package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/medications"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

type createMedicationPayload struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

type logDosePayload struct {
	TakenAt *time.Time `json:"taken_at"`
}

func (h *httpHandler) handleListMedications(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(c.DefaultQuery("include_archived", "false"))

	var (
		list []medications.Medication
		err  error
	)
	if includeArchived {
		list, err = h.medications.ListAll(c.Request.Context(), userID)
	} else {
		list, err = h.medications.ListActive(c.Request.Context(), userID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": list})
}

func (h *httpHandler) handleCreateMedication(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request createMedicationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	medication, err := h.medications.Create(c.Request.Context(), userID, medications.CreateInput{
		Name:      request.Name,
		Dosage:    request.Dosage,
		Frequency: request.Frequency,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, medication)
}

func (h *httpHandler) handleArchiveMedication(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	medication, err := h.medications.Archive(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, medication)
}

func (h *httpHandler) handleLogDose(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request logDosePayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	dose, err := h.medications.LogDose(c.Request.Context(), userID, c.Param("id"), request.TakenAt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dose)
}

// handleListDoses accepts from and to as calendar days in the service zone; to is inclusive.
func (h *httpHandler) handleListDoses(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	bounds, ok := h.parseRange(c)
	if !ok {
		return
	}
	var from, to time.Time
	if !bounds.From.IsZero() {
		from = h.startOf(bounds.From)
	}
	if !bounds.To.IsZero() {
		to = h.startOf(bounds.To.AddDays(1))
	}
	doses, err := h.medications.ListDoses(c.Request.Context(), userID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doses": doses})
}

func (h *httpHandler) startOf(day pain.Day) time.Time {
	return time.Date(day.Year, day.Month, day.Day, 0, 0, 0, 0, h.location)
}
