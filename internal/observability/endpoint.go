package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
	"github.com/tphakala/pcmring/internal/observability/metrics"
)

// Endpoint serves Prometheus metrics and a JSON status document over HTTP.
type Endpoint struct {
	Echo          *echo.Echo
	listenAddress string
	metrics       *Metrics
	started       time.Time

	mu       sync.Mutex
	listener net.Listener
}

// NewEndpoint creates an endpoint for metrics on listenAddress. The server
// is not started until Start is called.
func NewEndpoint(listenAddress string, m *Metrics) *Endpoint {
	e := &Endpoint{
		Echo:          echo.New(),
		listenAddress: listenAddress,
		metrics:       m,
		started:       time.Now(),
	}
	e.Echo.HideBanner = true
	e.Echo.HidePort = true
	e.Echo.Use(middleware.Recover())

	e.Echo.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.Echo.GET("/status", e.handleStatus)
	e.Echo.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	return e
}

// Start begins listening and serves until quitChan is closed, then shuts the
// server down gracefully. The listener is bound before Start returns.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryNetwork).
			Context("listen_address", e.listenAddress).
			Build()
	}

	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	e.Echo.Listener = ln
	log := getLogger()

	wg.Go(func() {
		log.Info("metrics endpoint starting", logger.String("address", ln.Addr().String()))
		if err := e.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		<-quitChan
		log.Info("stopping metrics endpoint")
		ctx, cancel := context.WithTimeout(context.Background(), metrics.ShutdownTimeout)
		defer cancel()
		if err := e.Echo.Shutdown(ctx); err != nil {
			log.Error("metrics endpoint shutdown error", logger.Error(err))
		}
	})

	return nil
}

// Addr returns the bound address once Start has succeeded
func (e *Endpoint) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return e.listenAddress
	}
	return e.listener.Addr().String()
}

func (e *Endpoint) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, Status{
		Time:    time.Now().UTC(),
		Uptime:  time.Since(e.started).Round(time.Second).String(),
		Host:    hostStatus(),
		Buffers: e.metrics.Buffers.Snapshot(),
	})
}
