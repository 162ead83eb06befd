package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/workbook"
)

// CalendarResolver builds a calendar from already-scanned file descriptions.
type CalendarResolver interface {
	BuildCalendar(files []models.FileInput) models.Calendar
}

// CalendarScanner scans workbooks on the server's disk.
type CalendarScanner interface {
	Build(ctx context.Context, paths []string) (models.Calendar, error)
	BuildFromDir(ctx context.Context, root string) (models.Calendar, error)
}

// TotalReader reads the total of a workbook posted by the caller.
type TotalReader interface {
	ReadTotal(r io.Reader) (string, error)
}

// ReportLookup finds archived calendars.
type ReportLookup interface {
	LatestMonthlyReport(ctx context.Context, year, month int) (*models.MonthlyReport, error)
}

// CalendarHandler exposes the date engine over HTTP. Scans are confined to
// baseDir; an empty baseDir disables them.
type CalendarHandler struct {
	resolver CalendarResolver
	scanner  CalendarScanner
	uploads  TotalReader
	archive  ReportLookup
	baseDir  string
	logger   *zap.Logger
}

// CalendarOption enables optional calendar endpoints.
type CalendarOption func(*CalendarHandler)

// WithUploads lets Resolve accept workbooks as multipart uploads.
func WithUploads(reader TotalReader) CalendarOption {
	return func(h *CalendarHandler) { h.uploads = reader }
}

// WithArchive serves archived calendars by period.
func WithArchive(archive ReportLookup) CalendarOption {
	return func(h *CalendarHandler) { h.archive = archive }
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(resolver CalendarResolver, scanner CalendarScanner, baseDir string, logger *zap.Logger, opts ...CalendarOption) *CalendarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseDir != "" {
		baseDir = filepath.Clean(baseDir)
	}
	h := &CalendarHandler{resolver: resolver, scanner: scanner, baseDir: baseDir, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Resolve builds a calendar from file descriptions supplied by the caller, or
// from workbooks uploaded as multipart "files" with an optional "dir" field.
func (h *CalendarHandler) Resolve(c *gin.Context) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		h.resolveUploads(c)
		return
	}

	var req models.ResolveCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid calendar payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.respond(c, h.resolver.BuildCalendar(req.Files))
}

func (h *CalendarHandler) resolveUploads(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "workbook uploads not enabled"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no workbooks uploaded"})
		return
	}

	dir := c.PostForm("dir")
	files := make([]models.FileInput, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		f := models.FileInput{Name: filepath.Base(fh.Filename), Dir: dir}
		f.Total, f.Err = h.readUpload(fh)
		f.HasTotal = f.Err == nil
		if f.Err != nil {
			h.logger.Warn("uploaded workbook unreadable", zap.String("file", f.Name), zap.Error(f.Err))
		}
		files = append(files, f)
	}
	h.respond(c, h.resolver.BuildCalendar(files))
}

func (h *CalendarHandler) readUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()
	return h.uploads.ReadTotal(f)
}

// Scan walks or lists workbooks under the configured report directory.
// Relative paths are taken from that directory.
func (h *CalendarHandler) Scan(c *gin.Context) {
	if h.baseDir == "" || h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report directory not configured"})
		return
	}
	var req models.ScanCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid scan payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var (
		cal models.Calendar
		err error
	)
	if len(req.Paths) > 0 {
		paths := make([]string, 0, len(req.Paths))
		for _, p := range req.Paths {
			abs, ok := h.confine(p)
			if !ok {
				c.JSON(http.StatusForbidden, gin.H{"error": "path outside report directory: " + p})
				return
			}
			paths = append(paths, abs)
		}
		cal, err = h.scanner.Build(c.Request.Context(), paths)
	} else {
		root, ok := h.confine(req.Root)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "root outside report directory"})
			return
		}
		cal, err = h.scanner.BuildFromDir(c.Request.Context(), root)
	}
	if err != nil {
		h.logger.Error("calendar scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, cal)
}

// Archived returns the latest archived calendar for /calendar/:year/:month.
func (h *CalendarHandler) Archived(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report archive not configured"})
		return
	}
	year, yerr := strconv.Atoi(c.Param("year"))
	month, merr := strconv.Atoi(c.Param("month"))
	if yerr != nil || merr != nil || year < 1 || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
		return
	}

	report, err := h.archive.LatestMonthlyReport(c.Request.Context(), year, month)
	if err != nil {
		h.logger.Error("failed loading archived report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive lookup failed"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no report for %04d-%02d", year, month)})
		return
	}
	if strings.EqualFold(c.Query("format"), "xlsx") {
		h.respond(c, report.Calendar)
		return
	}
	c.JSON(http.StatusOK, report)
}

// respond writes cal as JSON, or as a workbook when ?format=xlsx.
func (h *CalendarHandler) respond(c *gin.Context, cal models.Calendar) {
	if !strings.EqualFold(c.Query("format"), "xlsx") {
		c.JSON(http.StatusOK, cal)
		return
	}
	data, err := workbook.ExportCalendar(cal)
	if err != nil {
		h.logger.Error("failed exporting calendar", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="totals.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// confine resolves p against baseDir and reports whether it stays inside it.
func (h *CalendarHandler) confine(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(h.baseDir, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(h.baseDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}
