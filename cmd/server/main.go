package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/application"
	"github.com/eugenenazirov/fair-rent/internal/config"
	"github.com/eugenenazirov/fair-rent/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("fair-rent", "Fair rent division service - assigns rooms by maxsum and prices them envy-free")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	method := kingpinApp.Flag("default-method", "Pricing method used when a request names none (brams-kilgour, sung-vlach)").String()
	solverTimeout := kingpinApp.Flag("solver-timeout", "Deadline for one division request").Default("0s").Duration()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := buildOverrides(*configFile, *port, *logLevel, *method, *solverTimeout, *rateLimitRPSFlag, *rateLimitBurstFlag)

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func buildOverrides(configFile, port, logLevel, method string, solverTimeout time.Duration, rps float64, burst int) *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: configFile,
	}

	if port != "" {
		overrides.Port = &port
	}

	if logLevel != "" {
		overrides.LogLevel = &logLevel
	}

	if method != "" {
		overrides.DefaultMethod = &method
	}

	if solverTimeout > 0 {
		overrides.SolverTimeout = &solverTimeout
	}

	if rps >= 0 {
		overrides.RateLimitRPS = &rps
	}

	if burst >= 0 {
		overrides.RateLimitBurst = &burst
	}

	return overrides
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
