package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"crm-backend/pkg/container"
)

// startServices verifies the worker's dependencies before it starts taking
// tasks, then exposes the health endpoints for orchestration probes.
func startServices(c *container.Container) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis check failed: %w", err)
	}
	log.Info().Msg("Redis check OK")

	if err := c.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database check failed: %w", err)
	}
	log.Info().Msg("Database check OK")

	go startHealthCheckServer()
	return nil
}

func startHealthCheckServer() {
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"UP","service":"crm-worker"}`))
	})
	http.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"READY"}`))
	})

	log.Info().Msg("Health check server starting on :9999")
	if err := http.ListenAndServe(":9999", nil); err != nil {
		log.Error().Err(err).Msg("Health check server failed")
	}
}
