package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"academy/internal/config"
	"academy/internal/notify"
	"academy/internal/queue"
	"academy/internal/store"
)

// Worker drains the notification outbox and hands each WhatsApp link to
// the dispatcher, which here is the log.
func main() {
	cfg := config.Load()
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "worker"})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if cfg.RedisAddr == "" {
		logger.Fatal("worker needs REDIS_ADDR to read the outbox")
	}
	redisClient, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connect failed", "err", err)
	}
	defer redisClient.Close()

	messages, err := queue.NewRedisQueue(redisClient.Client, "").Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", "err", err)
	}

	logger.Info("worker started, waiting for messages")
	n := dispatch(messages, logger)
	logger.Info("worker stopped", "dispatched", n)
}

// dispatch logs every decodable handoff and returns how many it saw.
func dispatch(messages <-chan queue.Message, logger *log.Logger) int {
	n := 0
	for msg := range messages {
		h, err := notify.Decode(msg)
		if err != nil {
			logger.Warn("dropping outbox message", "type", msg.Type, "err", err)
			continue
		}
		n++
		logger.Info("dispatch", "reason", h.Reason, "to", h.Name, "destination", h.Destination, "uri", h.URI)
	}
	return n
}
