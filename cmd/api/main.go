package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/auth"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/casestore"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/gateway"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/inference"
	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/metrics"
)

// @title Case Analysis API
// @version 1.0
// @description Multi-stage AI case analysis for self-represented litigants
// @description
// @description Runs the research, analysis, strategy, and drafting stages over a case
// @description and returns a single merged report with an auditable merit score.

// @contact.name API Support
// @contact.email support@justice-bot.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// Set at build time via -ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.Printf("Case Analysis API starting, commit %s, built %s", GitCommit, BuildTime)

	// Initialize OpenTelemetry
	if err := initTracer(); err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}

	// The case store is optional: without DATABASE_URL the API still serves
	// requests that carry the full case context inline.
	var pool *pgxpool.Pool
	var store *casestore.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		log.Println("Connecting to PostgreSQL database...")
		var err error
		pool, err = casestore.Connect(context.Background(), dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		store = casestore.NewStore(pool)
		log.Println("Connected to PostgreSQL database")
	} else {
		log.Println("DATABASE_URL not set, case store disabled")
	}

	// Initialize JWT manager
	jwtManager, err := auth.NewJWTManager()
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	analysisMetrics, err := metrics.NewAnalysisMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	inferenceClient := inference.NewClient()

	// Initialize gateway layer
	registry := gateway.NewRegistry()
	handler := gateway.NewHandler(registry, inferenceClient, store, analysisMetrics)
	progressStream := gateway.NewProgressStream(registry, jwtManager)

	// Setup Gin router
	router := gin.Default()

	// Add structured JSON logging middleware
	router.Use(structuredLoggingMiddleware())

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  "database connection failed",
				})
				return
			}
		}
		if !inferenceClient.IsHealthy(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "inference gateway unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Swagger documentation (public)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes (require JWT authentication)
	api := router.Group("/api")
	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))

	// Analysis routes
	protected.POST("/analysis", handler.AnalyzeCase)
	protected.POST("/analysis/async", handler.StartAnalysisAsync)
	protected.GET("/analysis/:run_id", handler.GetAnalysis)
	protected.DELETE("/analysis/:run_id", handler.CancelAnalysis)

	// WebSocket route authenticates via query token inside the handler,
	// since browser websocket clients cannot set headers.
	api.GET("/ws/analysis/:run_id", progressStream.StreamAnalysis)

	// HTTP server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 8 * time.Minute, // Synchronous runs span four model calls
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Case Analysis API server on port %s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initTracer initializes OpenTelemetry tracing
func initTracer() error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return nil
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		userID, _ := c.Get("user_id")

		logEntry := map[string]interface{}{
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}

		if userID != nil {
			logEntry["user_id"] = userID
		}

		if len(c.Errors) > 0 {
			logEntry["errors"] = c.Errors.String()
		}

		logJSON, _ := json.Marshal(logEntry)
		log.Println(string(logJSON))
	}
}
