package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/meatvault/stock-service/pkg/aws"
	"github.com/meatvault/stock-service/scanner"
)

// maxScanImageBytes caps uploaded photos at 10 MB.
const maxScanImageBytes = 10 << 20

// ScanController runs the photo scan flow: store the image, ask the
// extraction API for a best-effort attribute guess, hand both back so the
// client can pre-fill its add-item form. Nothing here writes to the stores.
type ScanController struct {
	scanner  *scanner.Client
	s3Client *s3.Client
	bucket   string
	metrics  *awspkg.MetricsClient
	log      *zap.Logger
}

func NewScanController(sc *scanner.Client, s3Client *s3.Client, bucket string, metrics *awspkg.MetricsClient, log *zap.Logger) *ScanController {
	return &ScanController{scanner: sc, s3Client: s3Client, bucket: bucket, metrics: metrics, log: log}
}

// ScanItem accepts a multipart image upload and returns the extracted
// attributes. Failures are retryable; the caller decides whether to try
// again.
// POST /scan
func (sc *ScanController) ScanItem(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image upload"})
		return
	}
	if header.Size > maxScanImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image upload"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxScanImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image upload"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ctx := c.Request.Context()

	// Image storage is best effort: a failed upload only loses the photo
	// link, not the scan.
	imageURL := ""
	if sc.s3Client != nil && sc.bucket != "" {
		key := "scans/" + uuid.NewString() + path.Ext(header.Filename)
		imageURL, err = awspkg.UploadObject(ctx, sc.s3Client, sc.bucket, key, image, contentType)
		if err != nil {
			sc.log.Warn("failed to store scan image", zap.Error(err))
			imageURL = ""
		}
	}

	result, err := sc.scanner.Classify(ctx, image, contentType)
	if err != nil {
		if errors.Is(err, scanner.ErrUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Scan failed, please try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed"})
		return
	}

	expiry, err := scanner.ParseExpiry(result.ExpiryDate)
	if err != nil {
		sc.log.Warn("scan returned unparseable expiry",
			zap.String("expiryDate", result.ExpiryDate), zap.Error(err))
	}

	if sc.metrics != nil && sc.metrics.IsEnabled() {
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = sc.metrics.RecordCount(mctx, awspkg.MetricScansRun, map[string]string{"Service": "stock-service"})
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"itemName":   result.ItemName,
		"category":   result.Category,
		"expiryDate": expiry,
		"imageUrl":   imageURL,
	})
}
