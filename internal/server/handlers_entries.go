package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/calendar"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/entries"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/medications"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/stats"
)

const (
	recentEntryLimit  = 10
	defaultTrendRange = "30"
	defaultReportDays = 30
)

var trendRanges = map[string]int{
	"7":   7,
	"30":  30,
	"90":  90,
	"all": 0,
}

type upsertEntryPayload struct {
	Level *int   `json:"level"`
	Note  string `json:"note"`
}

func (h *httpHandler) handleListEntries(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	bounds, ok := h.parseRange(c)
	if !ok {
		return
	}
	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, bounds)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": snapshot})
}

func (h *httpHandler) handleUpsertEntry(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request upsertEntryPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	row, err := h.entries.Upsert(c.Request.Context(), userID, entries.UpsertInput{
		Date:  c.Param("date"),
		Level: request.Level,
		Note:  request.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	entry, err := row.Entry()
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.realtime.PublishEntryChange(userID.String(), []string{row.PainDate}, h.clock().UTC())
	c.JSON(http.StatusOK, entry)
}

type statsResponse struct {
	Stats           stats.Stats            `json:"stats"`
	UnlockedBadges  []stats.Badge          `json:"unlocked_badges"`
	LockedBadges    []stats.Badge          `json:"locked_badges"`
	WeekdayAverages []stats.WeekdayAverage `json:"weekday_averages"`
	RecentEntries   []pain.Entry           `json:"recent_entries"`
	Today           pain.Day               `json:"today"`
	TimeZone        string                 `json:"time_zone"`
}

func (h *httpHandler) handleStats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, entries.Range{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	computed := engine.Compute(snapshot)
	unlocked, locked := stats.SplitBadges(computed)
	c.JSON(http.StatusOK, statsResponse{
		Stats:           computed,
		UnlockedBadges:  unlocked,
		LockedBadges:    locked,
		WeekdayAverages: stats.WeekdayAverages(snapshot),
		RecentEntries:   stats.Recent(snapshot, recentEntryLimit),
		Today:           engine.Today(),
		TimeZone:        engine.Location().String(),
	})
}

func (h *httpHandler) handleTrends(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	rangeKey := c.DefaultQuery("range", defaultTrendRange)
	days, known := trendRanges[rangeKey]
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_range"})
		return
	}
	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, entries.Range{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	filtered := stats.FilterRange(snapshot, days, engine.Today())
	c.JSON(http.StatusOK, gin.H{
		"range":            rangeKey,
		"entries":          filtered,
		"weekday_averages": stats.WeekdayAverages(filtered),
		"summary":          stats.Summarize(filtered),
	})
}

func (h *httpHandler) handleHeatMap(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	today := engine.Today()
	start, end := calendar.DefaultHeatMapRange(today)
	if value := c.Query("start"); value != "" {
		parsed, err := pain.ParseDay(value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		start = parsed
	}
	if value := c.Query("end"); value != "" {
		parsed, err := pain.ParseDay(value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		end = parsed
	}
	if err := calendar.CheckRange(start, end); err != nil {
		h.respondError(c, err)
		return
	}

	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, entries.Range{From: start, To: end})
	if err != nil {
		h.respondError(c, err)
		return
	}
	weeks := calendar.BuildWeekGrid(start, end, calendar.GridOptions{
		Levels: pain.LevelsByDay(snapshot),
		Today:  today,
	})
	c.JSON(http.StatusOK, gin.H{"start": start, "end": end, "weeks": weeks})
}

func (h *httpHandler) handleMonth(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	year, yearErr := strconv.Atoi(c.Param("year"))
	month, monthErr := strconv.Atoi(c.Param("month"))
	if yearErr != nil || monthErr != nil || year < 1 || year > 9999 || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_month"})
		return
	}

	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	first := pain.NewDay(year, time.Month(month), 1)
	last := pain.NewDay(year, time.Month(month)+1, 0)
	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, entries.Range{From: first, To: last})
	if err != nil {
		h.respondError(c, err)
		return
	}
	weeks := calendar.BuildMonthGrid(year, time.Month(month), calendar.GridOptions{
		Levels: pain.LevelsByDay(snapshot),
		Today:  engine.Today(),
	})
	c.JSON(http.StatusOK, gin.H{
		"year":    year,
		"month":   month,
		"weeks":   weeks,
		"entries": snapshot,
	})
}

type reportResponse struct {
	Start             pain.Day                 `json:"start"`
	End               pain.Day                 `json:"end"`
	Summary           stats.RangeSummary       `json:"summary"`
	Entries           []pain.Entry             `json:"entries"`
	Medications       []medications.Medication `json:"medications"`
	ActiveMedications []medications.Medication `json:"active_medications"`
}

func (h *httpHandler) handleReport(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	today := engine.Today()
	bounds := entries.Range{From: today.AddDays(-(defaultReportDays - 1)), To: today}
	if value := c.Query("start"); value != "" {
		parsed, err := pain.ParseDay(value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		bounds.From = parsed
	}
	if value := c.Query("end"); value != "" {
		parsed, err := pain.ParseDay(value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		bounds.To = parsed
	}

	snapshot, err := h.entries.Snapshot(c.Request.Context(), userID, bounds)
	if err != nil {
		h.respondError(c, err)
		return
	}
	all, err := h.medications.ListAll(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reportResponse{
		Start:             bounds.From,
		End:               bounds.To,
		Summary:           stats.Summarize(snapshot),
		Entries:           snapshot,
		Medications:       all,
		ActiveMedications: medications.ActiveOn(all, bounds.To, engine.Location()),
	})
}

func (h *httpHandler) parseRange(c *gin.Context) (entries.Range, bool) {
	var bounds entries.Range
	for key, target := range map[string]*pain.Day{"from": &bounds.From, "to": &bounds.To} {
		value := c.Query(key)
		if value == "" {
			continue
		}
		parsed, err := pain.ParseDay(value)
		if err != nil {
			h.respondError(c, err)
			return entries.Range{}, false
		}
		*target = parsed
	}
	return bounds, true
}

// engineFor honours an optional tz query parameter naming an IANA zone. Every
// endpoint that depends on today resolves it here.
func (h *httpHandler) engineFor(c *gin.Context) (*stats.Engine, bool) {
	zone := c.Query("tz")
	if zone == "" {
		return h.engine, true
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_time_zone"})
		return nil, false
	}
	return h.engine.WithLocation(loc), true
}
