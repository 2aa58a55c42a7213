package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bizintel/internal/domain"
	"bizintel/internal/service"
	"bizintel/internal/storage/postgres"
)

const (
	defaultCount = 5
	maxCount     = 100
	defaultTopic = "Startups"
)

type Dashboards interface {
	Run(ctx context.Context, persona string) (*domain.Report, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, sources []string, limit int) ([]domain.HistoryEntry, error)
}

type Handler struct {
	news       service.NewsAggregator
	funding    service.FundingSource
	dashboards Dashboards
	reports    service.ReportStore
	history    HistoryReader
	logger     *slog.Logger
}

func NewHandler(
	news service.NewsAggregator,
	funding service.FundingSource,
	dashboards Dashboards,
	reports service.ReportStore,
	history HistoryReader,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		news:       news,
		funding:    funding,
		dashboards: dashboards,
		reports:    reports,
		history:    history,
		logger:     logger.With("component", "api"),
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetNews aggregates news across the selected providers.
func (h *Handler) GetNews(c *gin.Context) {
	count, ok := queryCount(c, "count")
	if !ok {
		return
	}

	topic := c.DefaultQuery("topic", defaultTopic)
	articles := h.news.Aggregate(c.Request.Context(), topic, count, splitList(c.Query("sources")))

	c.JSON(http.StatusOK, gin.H{
		"topic":    topic,
		"count":    len(articles),
		"articles": articles,
	})
}

func (h *Handler) GetFunding(c *gin.Context) {
	count, ok := queryCount(c, "count")
	if !ok {
		return
	}

	items, err := h.funding.FetchFunding(c.Request.Context(), count)
	if err != nil {
		h.logger.Error("error fetching funding news", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Funding feed unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(items), "articles": items})
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit, ok := queryCount(c, "limit")
	if !ok {
		return
	}

	entries, err := h.history.Recent(c.Request.Context(), splitList(c.Query("sources")), limit)
	if err != nil {
		h.logger.Error("error fetching news history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

func (h *Handler) RunDashboard(c *gin.Context) {
	persona := c.Param("persona")

	report, err := h.dashboards.Run(c.Request.Context(), persona)
	if errors.Is(err, service.ErrUnknownPersona) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown persona"})
		return
	}
	if err != nil {
		h.logger.Error("error running dashboard", "persona", persona, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dashboard run failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetLatestReport(c *gin.Context) {
	persona := c.Param("persona")
	if !domain.IsPersona(persona) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown persona"})
		return
	}

	report, err := h.reports.Latest(c.Request.Context(), persona)
	if errors.Is(err, postgres.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		h.logger.Error("error fetching report", "persona", persona, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// queryCount reads a non-negative integer query parameter. It writes a 400
// response and returns false when the value is invalid.
func queryCount(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return defaultCount, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return n, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
