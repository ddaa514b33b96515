package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/chat"
	"surakshanet/internal/inference"
	"surakshanet/internal/media"
	"surakshanet/internal/models"
	"surakshanet/internal/repository"
	"surakshanet/internal/service"
)

// Version is reported by /health
const Version = "1.0.0"

// SessionHeader names the chat session a request belongs to
const SessionHeader = "X-Session-ID"

// ReportStore is the read side of the report archive
type ReportStore interface {
	GetReport(ctx context.Context, id string) (*models.ReportRecord, error)
	ListReports(ctx context.Context, limit, offset int) ([]*models.ReportRecord, error)
	ListReportsByModule(ctx context.Context, module string, limit int) ([]*models.ReportRecord, error)
	AllReports(ctx context.Context) ([]*models.ReportRecord, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
}

// archivedModules are the modules that produce stored reports
var archivedModules = []string{
	models.ModuleFraud,
	models.ModuleDeepfake,
	models.ModuleFacial,
	models.ModuleSurveillance,
	models.ModuleVoice,
	models.ModulePhishing,
}

// Handler handles HTTP requests
type Handler struct {
	svc     *service.Service
	chats   *chat.Registry
	reports ReportStore
	logger  *zap.Logger
}

// NewHandler creates a new API handler; reports may be nil when the archive is disabled
func NewHandler(svc *service.Service, chats *chat.Registry, reports ReportStore, logger *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		chats:   chats,
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes; middleware guards /api/v1
func (h *Handler) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	api := r.Group("/api/v1", middleware...)
	{
		// Analysis modules
		api.POST("/fraud/analyze", h.AnalyzeFraud)
		api.POST("/deepfake/analyze", h.AnalyzeDeepfake)
		api.POST("/facial/search", h.SearchFaces)
		api.POST("/surveillance/analyze", h.AnalyzeSurveillance)
		api.POST("/voice/analyze", h.AnalyzeVoice)

		// Phishing and its feedback log
		api.POST("/phishing/analyze", h.AnalyzePhishing)
		api.GET("/phishing/history", h.PhishingHistory)
		api.POST("/phishing/history/:id/feedback", h.PhishingFeedback)

		// Chat
		api.POST("/chat/init", h.ChatInit)
		api.POST("/chat/send", h.ChatSend)
		api.POST("/chat/reset", h.ChatReset)
		api.GET("/chat/history", h.ChatHistory)

		// Report archive
		api.GET("/reports", h.ListReports)
		api.GET("/reports/stats", h.GetStats)
		api.GET("/reports/module/:module", h.ListReportsByModule)
		api.GET("/reports/:id", h.GetReport)

		// Export
		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// writeError maps an error to its status; the message is already safe for users
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("Unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperror.KindConfig:
		status = http.StatusServiceUnavailable
	case apperror.KindInput:
		status = http.StatusBadRequest
		if errors.Is(err, media.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		if errors.Is(err, service.ErrReportNotFound) {
			status = http.StatusNotFound
		}
	case apperror.KindTransport:
		status = http.StatusBadGateway
		if errors.Is(err, inference.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
	case apperror.KindContract:
		status = http.StatusBadGateway
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error":  appErr.Message,
		"kind":   appErr.Kind.String(),
		"module": appErr.Module,
	})
}

// AnalyzeFraud handles a transaction check
func (h *Handler) AnalyzeFraud(c *gin.Context) {
	var req models.FraudAnalysisRequest
	// an unconfigured service answers 503 whatever the body holds
	if err := c.ShouldBindJSON(&req); err != nil && h.svc.Configured() {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.svc.AnalyzeFraud(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalyzeDeepfake handles an image authenticity check
func (h *Handler) AnalyzeDeepfake(c *gin.Context) {
	up, ok := h.bindUpload(c, models.ModuleDeepfake, media.Image)
	if !ok {
		return
	}
	report, err := h.svc.AnalyzeDeepfake(c.Request.Context(), up)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// SearchFaces handles a simulated facial search
func (h *Handler) SearchFaces(c *gin.Context) {
	up, ok := h.bindUpload(c, models.ModuleFacial, media.Image)
	if !ok {
		return
	}
	result, err := h.svc.SearchFaces(c.Request.Context(), up)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeSurveillance handles a CCTV footage check
func (h *Handler) AnalyzeSurveillance(c *gin.Context) {
	up, ok := h.bindUpload(c, models.ModuleSurveillance, media.Video)
	if !ok {
		return
	}
	report, err := h.svc.AnalyzeSurveillance(c.Request.Context(), up)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalyzeVoice handles a call recording check
func (h *Handler) AnalyzeVoice(c *gin.Context) {
	up, ok := h.bindUpload(c, models.ModuleVoice, media.Audio)
	if !ok {
		return
	}
	report, err := h.svc.AnalyzeVoiceScam(c.Request.Context(), up)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalyzePhishing handles a URL, email or SMS check
func (h *Handler) AnalyzePhishing(c *gin.Context) {
	var req models.PhishingAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.svc.AnalyzePhishing(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// PhishingHistory returns the recent phishing checks
func (h *Handler) PhishingHistory(c *gin.Context) {
	entries := h.svc.PhishingHistory()
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// PhishingFeedback records a verdict on a recent check
func (h *Handler) PhishingFeedback(c *gin.Context) {
	var req models.PhishingFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.RecordPhishingFeedback(c.Param("id"), req.Verdict); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "feedback": req.Verdict})
}

func (h *Handler) session(c *gin.Context) *chat.Session {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		id = c.Query("session")
	}
	return h.chats.Get(id)
}

// ChatInit starts the chat session without sending a message
func (h *Handler) ChatInit(c *gin.Context) {
	s := h.session(c)
	if err := s.Init(); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID(), "state": s.State().String()})
}

// ChatSend delivers one message in the session
func (h *Handler) ChatSend(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.session(c).Send(c.Request.Context(), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ChatReset forgets the session's conversation
func (h *Handler) ChatReset(c *gin.Context) {
	s := h.session(c)
	s.Reset()
	c.JSON(http.StatusOK, gin.H{"sessionId": s.ID(), "state": s.State().String()})
}

// ChatHistory returns the turns since the last reset
func (h *Handler) ChatHistory(c *gin.Context) {
	s := h.session(c)
	turns := s.Transcript()
	c.JSON(http.StatusOK, gin.H{
		"sessionId": s.ID(),
		"state":     s.State().String(),
		"turns":     turns,
	})
}

func (h *Handler) requireArchive(c *gin.Context) bool {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report archive is disabled"})
		return false
	}
	return true
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s (must be a non-negative integer)", name)})
		return 0, false
	}
	return n, true
}

// ListReports returns archived reports newest first
func (h *Handler) ListReports(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset")
	if !ok {
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}

// ListReportsByModule returns one module's archived reports
func (h *Handler) ListReportsByModule(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}
	module := c.Param("module")
	if !slices.Contains(archivedModules, module) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown module %q", module)})
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	reports, err := h.reports.ListReportsByModule(c.Request.Context(), module, limit)
	if err != nil {
		h.logger.Error("Failed to list reports by module", zap.String("module", module), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"module":  module,
		"total":   len(reports),
	})
}

// GetReport returns one archived report
func (h *Handler) GetReport(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}
	c.JSON(http.StatusOK, exportRecordOf(report))
}

// GetStats returns archive statistics
func (h *Handler) GetStats(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// exportRecord inlines the stored report JSON
type exportRecord struct {
	ID         string          `json:"id"`
	Module     string          `json:"module"`
	Assessment string          `json:"assessment"`
	Confidence float64         `json:"confidence"`
	Subject    string          `json:"subject"`
	Report     json.RawMessage `json:"report"`
	CreatedAt  string          `json:"created_at"`
}

func exportRecordOf(r *models.ReportRecord) exportRecord {
	payload := json.RawMessage(r.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}
	return exportRecord{
		ID:         r.ID,
		Module:     r.Module,
		Assessment: r.Assessment,
		Confidence: r.Confidence,
		Subject:    r.Subject,
		Report:     payload,
		CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ExportCSV exports the archive summary to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	reports, err := h.reports.AllReports(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=reports.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"id", "module", "assessment", "confidence", "subject", "created_at"})
	for _, r := range reports {
		rec := exportRecordOf(r)
		writer.Write([]string{
			rec.ID,
			rec.Module,
			rec.Assessment,
			strconv.FormatFloat(rec.Confidence, 'f', 2, 64),
			rec.Subject,
			rec.CreatedAt,
		})
	}
}

// ExportJSON exports full reports to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	if !h.requireArchive(c) {
		return
	}

	reports, err := h.reports.AllReports(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	out := make([]exportRecord, len(reports))
	for i, r := range reports {
		out[i] = exportRecordOf(r)
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=reports.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		h.logger.Error("Failed to write JSON export", zap.Error(err))
	}
}

// HealthCheck returns service health; inference_configured drives the dashboard banner
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"service":              "surakshanet",
		"version":              Version,
		"inference_configured": h.svc.Configured(),
		"archive_enabled":      h.reports != nil,
		"chat_sessions":        h.chats.Len(),
	})
}
