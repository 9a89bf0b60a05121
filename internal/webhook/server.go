// Package webhook runs the standalone ingress for POS push deliveries. It
// lives on its own port so provider traffic never shares a listener with
// the app API.
package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"

	"venuepass/internal/services/pos"
	"venuepass/security"
	"venuepass/services"
)

type Server struct {
	echo     *echo.Echo
	srv      *http.Server
	registry *pos.Registry
	ingest   *services.POSIngestService
}

func NewServer(registry *pos.Registry, ingest *services.POSIngestService, redisClient *redis.Client, perMinute int) *Server {
	e := echo.New()

	limiter := security.NewRateLimiter(redisClient)

	s := &Server{
		echo:     e,
		registry: registry,
		ingest:   ingest,
	}

	e.POST("/webhooks/pos/:provider", s.handleDelivery, limiter.WebhookRateLimit(perMinute))

	return s
}

// handleDelivery verifies, parses and ingests one push delivery. A
// duplicate delivery still answers 200 so the provider stops retrying.
func (s *Server) handleDelivery(c echo.Context) error {
	name := pos.ProviderName(c.PathParam("provider"))

	provider, err := s.registry.Get(name)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown provider"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	signature := c.Request().Header.Get("X-Webhook-Signature")
	if signature == "" {
		signature = c.Request().Header.Get("X-Square-Hmacsha256-Signature")
	}
	if !provider.VerifyWebhook(signature, body) {
		slog.Warn("webhook signature mismatch", "provider", name, "ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "bad signature"})
	}

	raw, venueID, err := provider.ParseWebhook(body)
	if err != nil {
		slog.Warn("webhook parse failed", "provider", name, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}

	created, err := s.ingest.Ingest(c.Request().Context(), name, venueID, raw)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "ingest failed"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"created": created,
	})
}

func (s *Server) Start(port string) error {
	slog.Info("webhook ingress listening", "port", port)
	s.srv = &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: s.echo}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
