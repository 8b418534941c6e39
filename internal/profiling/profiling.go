// Package profiling exposes optional pprof and continuous profiling for
// the render pipeline. Both are off unless enabled through the
// environment, and neither affects request serving when disabled.
package profiling

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/grafana/pyroscope-go"

	"github.com/jonesrussell/webloader/internal/logger"
)

// Environment variables controlling profiling.
const (
	envPprofEnabled     = "ENABLE_PROFILING"
	envPprofPort        = "PPROF_PORT"
	envPyroscopeEnabled = "ENABLE_CONTINUOUS_PROFILING"
	envPyroscopeServer  = "PYROSCOPE_SERVER_URL"
	envPyroscopeEnv     = "PYROSCOPE_ENVIRONMENT"
)

const defaultPprofPort = "6060"

// StartPprofServer serves the standard /debug/pprof endpoints on a
// localhost-only port when ENABLE_PROFILING=true. Render stalls show up
// in the goroutine and block profiles; conversion cost in the CPU profile.
func StartPprofServer(log logger.Logger) {
	if os.Getenv(envPprofEnabled) != "true" {
		return
	}

	port := os.Getenv(envPprofPort)
	if port == "" {
		port = defaultPprofPort
	}

	// Localhost only; the profiling surface must not be reachable from
	// the scrape network.
	addr := "localhost:" + port

	go func() {
		log.Info("Starting pprof server",
			logger.String("address", addr),
		)
		server := &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}
		if err := server.ListenAndServe(); err != nil {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
}

// Profiler wraps a running continuous profiler.
type Profiler struct {
	profiler *pyroscope.Profiler
}

// StartPyroscope starts continuous profiling against a Pyroscope server
// when ENABLE_CONTINUOUS_PROFILING=true. Returns nil when disabled.
func StartPyroscope(service, version string, log logger.Logger) (*Profiler, error) {
	if os.Getenv(envPyroscopeEnabled) != "true" {
		return nil, nil
	}

	serverURL := os.Getenv(envPyroscopeServer)
	if serverURL == "" {
		serverURL = "http://pyroscope:4040"
	}

	environment := os.Getenv(envPyroscopeEnv)
	if environment == "" {
		environment = "development"
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: service,
		ServerAddress:   serverURL,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"environment": environment,
			"version":     version,
			"hostname":    hostname(),
			"go_version":  runtime.Version(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start continuous profiler: %w", err)
	}

	log.Info("Continuous profiling started",
		logger.String("server", serverURL),
		logger.String("environment", environment),
	)

	return &Profiler{profiler: profiler}, nil
}

// Stop flushes and stops the continuous profiler. Nil-safe.
func (p *Profiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
