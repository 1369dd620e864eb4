package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"cityguardian/models"
	"cityguardian/service"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/golang/geo/s2"
)

// ReportProcessor runs a complaint through the routing pipeline.
type ReportProcessor interface {
	Process(ctx context.Context, c models.Complaint) (*models.SendReportResponse, error)
}

// Handlers represents the HTTP handlers
type Handlers struct {
	processor     ReportProcessor
	maxImageBytes int64
}

// NewHandlers creates new HTTP handlers
func NewHandlers(processor ReportProcessor, maxImageBytes int64) *Handlers {
	return &Handlers{processor: processor, maxImageBytes: maxImageBytes}
}

// Root is the liveness probe of the original frontend.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "CityGuardian backend running"})
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cityguardian",
	})
}

// SendReport accepts a multipart complaint and runs it through the pipeline.
func (h *Handlers) SendReport(c *gin.Context) {
	complaint, status, err := h.parseComplaint(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.processor.Process(c.Request.Context(), complaint)
	if err != nil {
		reportID := ""
		var perr *service.PipelineError
		if errors.As(err, &perr) {
			reportID = perr.ReportID
		}
		log.WithField("report_id", reportID).WithError(err).Error("Failed to process report")
		c.JSON(http.StatusBadGateway, gin.H{
			"status": service.StatusError,
			"id":     reportID,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) parseComplaint(c *gin.Context) (models.Complaint, int, error) {
	var complaint models.Complaint

	required := []struct {
		key string
		dst *string
	}{
		{"name", &complaint.Name},
		{"email", &complaint.Email},
		{"complaint", &complaint.Description},
	}
	for _, f := range required {
		v := strings.TrimSpace(c.PostForm(f.key))
		if v == "" {
			return complaint, http.StatusBadRequest, fmt.Errorf("%s is required", f.key)
		}
		*f.dst = v
	}

	lat, err := parseCoordinate(c.PostForm("latitude"))
	if err != nil {
		return complaint, http.StatusBadRequest, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := parseCoordinate(c.PostForm("longitude"))
	if err != nil {
		return complaint, http.StatusBadRequest, fmt.Errorf("invalid longitude: %w", err)
	}
	if !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return complaint, http.StatusBadRequest, fmt.Errorf("coordinates %v, %v are out of range", lat, lon)
	}
	complaint.Latitude, complaint.Longitude = lat, lon

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return complaint, 0, nil
	case err != nil:
		return complaint, http.StatusBadRequest, fmt.Errorf("invalid image: %w", err)
	}
	if h.maxImageBytes > 0 && fh.Size > h.maxImageBytes {
		return complaint, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", h.maxImageBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return complaint, http.StatusBadRequest, fmt.Errorf("invalid image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return complaint, http.StatusBadRequest, fmt.Errorf("failed to read image: %w", err)
	}
	complaint.Image = data
	complaint.ImageType = fh.Header.Get("Content-Type")

	return complaint, 0, nil
}

func parseCoordinate(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("value is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("value is not finite")
	}
	return v, nil
}
