package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NazeerGreene/WeatherApp/internal/client"
	"github.com/NazeerGreene/WeatherApp/internal/config"
	"github.com/NazeerGreene/WeatherApp/internal/handler"
	"github.com/NazeerGreene/WeatherApp/internal/middleware"
	"github.com/NazeerGreene/WeatherApp/internal/repository"
	"github.com/NazeerGreene/WeatherApp/internal/service"
)

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	maxRequests, interval, cbTimeout := config.GetCircuitBreakerSettings()
	weatherClient, err := client.NewVisualCrossingClient(
		config.GetVisualCrossingAPIKey(),
		config.GetVisualCrossingApiUrl(),
		config.GetVisualCrossingTimeout(),
		client.BreakerSettings{
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     cbTimeout,
		},
	)
	if err != nil {
		logger.Fatalw("weather client", "error", err)
	}

	weatherRepo := repository.NewWeatherRepository(weatherClient)
	weatherService := service.NewWeatherService(weatherRepo)
	weatherHandler := handler.NewWeatherHandler(weatherService)

	router := weatherHandler.Routes()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware,
		middleware.RateLimitMiddleware,
	)
	middleware.StartRateLimiterCleanup()

	port := config.GetServerPort()
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: config.GetServerTimeout("read_header_timeout"),
		ReadTimeout:       config.GetServerTimeout("read_timeout"),
		WriteTimeout:      config.GetServerTimeout("write_timeout"),
		IdleTimeout:       config.GetServerTimeout("idle_timeout"),
	}

	go func() {
		logger.Infow("Weather API server running", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorw("shutdown", "error", err)
	}
}
