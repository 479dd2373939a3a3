package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meatvault/stock-service/controllers"
	"github.com/meatvault/stock-service/database"
	"github.com/meatvault/stock-service/errbus"
	"github.com/meatvault/stock-service/logger"
	awspkg "github.com/meatvault/stock-service/pkg/aws"
	"github.com/meatvault/stock-service/repository"
	"github.com/meatvault/stock-service/routes"
	"github.com/meatvault/stock-service/scanner"
	"github.com/meatvault/stock-service/services"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	mongoClient, db, err := database.Connect(context.Background())
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := database.Close(mongoClient); err != nil {
			log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()

	// CloudWatch metrics (non-fatal when unavailable).
	metricsClient, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// The write-error bus gets exactly one process-lifetime listener: the
	// diagnostic sink that logs every denied store access with its payload.
	bus := errbus.New()
	bus.Subscribe(func(f errbus.WriteFailure) {
		log.Error("store access denied",
			zap.String("path", f.Path),
			zap.String("operation", string(f.Operation)),
			zap.Any("payload", f.Payload),
			zap.Error(f.Err))
		if metricsClient != nil && metricsClient.IsEnabled() {
			go func(op string) {
				mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsClient.RecordCount(mctx, awspkg.MetricWriteDenied, map[string]string{"Operation": op})
			}(string(f.Operation))
		}
	})

	// S3 for scanned item photos (optional).
	var s3Client *s3.Client
	if cfg.S3Bucket != "" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			s3Client = awspkg.NewS3Client(awsCfg)
		} else {
			log.Warn("AWS config load failed, scan images will not be stored", zap.Error(err))
		}
	}

	// --- Service wiring ---
	inventoryRepo := repository.NewMongoInventoryRepository(db, log)
	needsRepo := repository.NewMongoNeedsRepository(db, log)

	inventoryService := services.NewInventoryService(inventoryRepo, bus, log)
	needsService := services.NewNeedsService(needsRepo, bus, log)
	scanClient := scanner.NewClient(cfg.ScanAPIURL, cfg.ScanAPIKey, log)

	inventoryController := controllers.NewInventoryController(inventoryService, log)
	needsController := controllers.NewNeedsController(needsService, log)
	dashboardController := controllers.NewDashboardController(inventoryService, log)
	scanController := controllers.NewScanController(scanClient, s3Client, cfg.S3Bucket, metricsClient, log)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))

	if metricsClient != nil && metricsClient.IsEnabled() {
		r.Use(func(c *gin.Context) {
			start := time.Now()
			c.Next()
			go func(path, method string, status int, dur time.Duration) {
				mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				dims := map[string]string{"Service": "stock-service", "Method": method, "Path": path}
				_ = metricsClient.RecordCount(mctx, awspkg.MetricHTTPRequests, dims)
				_ = metricsClient.RecordLatency(mctx, awspkg.MetricHTTPLatency, dur, dims)
				if status >= 400 {
					_ = metricsClient.RecordCount(mctx, awspkg.MetricHTTPErrors, dims)
				}
			}(c.Request.URL.Path, c.Request.Method, c.Writer.Status(), time.Since(start))
		})
	}

	// Request timeout; live streams are exempt, they end with the client.
	r.Use(func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/stream") {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, []byte(cfg.JWTSecret), inventoryController, needsController, dashboardController, scanController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Stock Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Stock Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Stock Service stopped gracefully")
}
