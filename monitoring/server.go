package monitoring

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"venuepass/utils"
)

// MetricsServer exposes /metrics and a liveness probe on its own port, kept
// off the main API surface.
type MetricsServer struct {
	echo  *echo.Echo
	srv   *http.Server
	redis *redis.Client
}

func NewMetricsServer(redisClient *redis.Client) *MetricsServer {
	e := echo.New()

	s := &MetricsServer{echo: e, redis: redisClient}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", s.healthz)

	return s
}

func (s *MetricsServer) Start(port string) {
	s.srv = &http.Server{Addr: ":" + port, Handler: s.echo}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server stopped", "error", err)
	}
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *MetricsServer) healthz(c echo.Context) error {
	if err := utils.RedisHealthCheck(s.redis); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
