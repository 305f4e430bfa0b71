package gateway

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/auth"
)

// ProgressStream streams pipeline progress events to websocket clients.
type ProgressStream struct {
	registry   *Registry
	jwtManager *auth.JWTManager
	tracer     trace.Tracer
	upgrader   websocket.Upgrader
}

// NewProgressStream creates a websocket progress streamer.
func NewProgressStream(registry *Registry, jwtManager *auth.JWTManager) *ProgressStream {
	return &ProgressStream{
		registry:   registry,
		jwtManager: jwtManager,
		tracer:     otel.Tracer("progress-stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend domains are final
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamAnalysis handles WebSocket /api/ws/analysis/:run_id
// @Summary Stream analysis progress
// @Description WebSocket endpoint streaming real-time pipeline events for a run
// @Tags analysis
// @Param run_id path string true "Run ID"
// @Param token query string false "JWT token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /ws/analysis/{run_id} [get]
func (p *ProgressStream) StreamAnalysis(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "progress_stream.stream_analysis")
	defer span.End()

	runID := c.Param("run_id")
	span.SetAttributes(attribute.String("run_id", runID))

	userID, err := p.validateToken(c)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"WebSocket auth failed","run_id":"%s","error":"%v"}`, runID, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	span.SetAttributes(attribute.String("user_id", userID))

	run, ok := p.registry.Get(runID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis run not found"})
		return
	}

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := run.Subscribe()
	defer unsubscribe()

	log.Printf(`{"level":"info","message":"Progress stream opened","run_id":"%s","user_id":"%s"}`, runID, userID)

	// Drain client reads so close frames are processed; clients send nothing
	// meaningful on this stream.
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, open := <-events:
			if !open {
				// Terminal event already delivered; send the final snapshot
				// so late subscribers still see the outcome.
				if err := conn.WriteJSON(run.Orchestrator.Snapshot()); err != nil {
					log.Printf("Failed to write final snapshot for run %s: %v", runID, err)
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(time.Second))
				log.Printf(`{"level":"info","message":"Progress stream closed","run_id":"%s"}`, runID)
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Failed to write event for run %s: %v", runID, err)
				return
			}
		case <-clientClosed:
			log.Printf(`{"level":"info","message":"Progress stream client disconnected","run_id":"%s"}`, runID)
			return
		case <-ctx.Done():
			return
		}
	}
}

// validateToken accepts the JWT from the token query parameter, which is
// how browser websocket clients pass it, falling back to the Authorization
// header.
func (p *ProgressStream) validateToken(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
			token = authHeader[len(prefix):]
		}
	}
	if token == "" {
		return "", fmt.Errorf("missing JWT token")
	}

	claims, err := p.jwtManager.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return "", fmt.Errorf("invalid JWT: %w", err)
	}
	return claims.UserID, nil
}
