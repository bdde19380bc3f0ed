// Package telemetry provides opt-in, privacy-filtered error reporting
package telemetry

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/pcmring/internal/buildinfo"
	"github.com/tphakala/pcmring/internal/conf"
	"github.com/tphakala/pcmring/internal/errors"
	"github.com/tphakala/pcmring/internal/logger"
)

const componentTelemetry = "telemetry"

// sentryInitialized tracks whether Sentry has been initialized
var sentryInitialized atomic.Bool

// Option customizes Sentry initialization
type Option func(*sentry.ClientOptions)

// WithTransport replaces the Sentry transport, used by tests
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) { o.Transport = t }
}

// WithHTTPClient sets the client used by the default HTTP transport
func WithHTTPClient(c *http.Client) Option {
	return func(o *sentry.ClientOptions) { o.HTTPClient = c }
}

func getLogger() logger.Logger {
	return logger.Global().Module(componentTelemetry)
}

// Init initializes Sentry when the user has opted in and registers the
// reporter with the errors package. It is a no-op when Sentry is disabled.
func Init(settings *conf.Settings, build *buildinfo.Context, opts ...Option) error {
	if !settings.Sentry.Enabled {
		getLogger().Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,
		Debug:      settings.Sentry.Debug,

		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // keep the hostname out of events
		Release:          build.Release(),

		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return errors.New(err).
			Component(componentTelemetry).
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	configureScope(build)
	sentryInitialized.Store(true)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	getLogger().Info("sentry telemetry initialized",
		logger.String("release", build.Release()),
		logger.Bool("debug", settings.Sentry.Debug))
	return nil
}

// Enabled reports whether Init installed a Sentry client
func Enabled() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for queued events and detaches the reporter
func Flush(timeout time.Duration) bool {
	if !sentryInitialized.Swap(false) {
		return true
	}
	errors.SetTelemetryReporter(nil)
	ok := sentry.Flush(timeout)
	if !ok {
		getLogger().Warn("sentry flush timed out", logger.Duration("timeout", timeout))
	}
	return ok
}

// configureScope tags every event with privacy-safe platform information
func configureScope(build *buildinfo.Context) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "pcmring",
			"version":    build.Version(),
			"build_date": build.BuildDate(),
		})
		scope.SetContext("platform", map[string]any{
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"num_cpu":    runtime.NumCPU(),
			"go_version": runtime.Version(),
		})
	})
}

// applyPrivacyFilters strips user, host and device data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	for _, key := range []string{"device", "os", "runtime"} {
		delete(event.Contexts, key)
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	delete(event.Tags, "server_name")
	delete(event.Tags, "hostname")

	return event
}
