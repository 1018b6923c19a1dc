package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/eargasm/sortly-recon/internal/config"
	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/mirror"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/eargasm/sortly-recon/internal/sortly"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &mirror.Service{
		Sortly:      sortly.New(cfg.SortlyBaseURL, cfg.SortlySecretKey),
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-mirror",
	}

	group := getenv("MIRROR_GROUP", "sortly-mirror")
	workers := mustAtoi(os.Getenv("MIRROR_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, recon.TopicDeductionApplied, workers)

	go func() {
		log.Printf("mirror consumer started: group=%s topic=%s workers=%d", group, recon.TopicDeductionApplied, workers)
		if err := cons.Start(ctx, svc.HandleDeduction); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down consumer...")
	case <-ctx.Done():
	}
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
