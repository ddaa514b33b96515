package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surakshanet/internal/apperror"
	"surakshanet/internal/media"
	"surakshanet/internal/models"
)

// bodySlack covers base64 growth, JSON framing and multipart headers
const bodySlack = 64 << 10

// bindUpload reads a file from a multipart "file" field or a base64 JSON body.
// Bodies are capped a little above the kind's ceiling so oversized files fail early.
func (h *Handler) bindUpload(c *gin.Context, module string, kind media.Kind) (models.MediaUpload, bool) {
	if !h.svc.Configured() {
		// the service answers with the missing credential before looking at the file
		return models.MediaUpload{}, true
	}

	policy := h.svc.Policies().For(kind)
	limit := policy.MaxBytes*4/3 + bodySlack
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var (
		up  models.MediaUpload
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		up, err = readMultipart(c, policy.MaxBytes)
	} else {
		up, err = readJSON(c)
	}
	if err == nil {
		return up, true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = fmt.Errorf("%w: request exceeds the %s limit for %s files",
			media.ErrFileTooLarge, media.FormatSize(policy.MaxBytes), kind)
	}
	h.logger.Warn("Failed to read upload", zap.String("module", module), zap.Error(err))
	h.writeError(c, apperror.Invalid(module, "Upload", err))
	return models.MediaUpload{}, false
}

func readJSON(c *gin.Context) (models.MediaUpload, error) {
	var req models.MediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.MediaUpload{}, err
	}
	return media.FromRequest(req)
}

func readMultipart(c *gin.Context, maxBytes int64) (models.MediaUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return models.MediaUpload{}, fmt.Errorf("multipart field \"file\" is required: %w", err)
	}
	if fh.Size > maxBytes {
		return models.MediaUpload{}, fmt.Errorf("%w: %s exceeds the %s limit",
			media.ErrFileTooLarge, media.FormatSize(fh.Size), media.FormatSize(maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return models.MediaUpload{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	// one byte past the ceiling lets the policy report the overflow
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return models.MediaUpload{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	mimeType := c.PostForm("mimeType")
	if mimeType == "" {
		mimeType = fh.Header.Get("Content-Type")
	}
	return models.MediaUpload{FileName: fh.Filename, MIMEType: mimeType, Data: data}, nil
}
