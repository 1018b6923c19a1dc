package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eargasm/sortly-recon/internal/config"
	"github.com/eargasm/sortly-recon/internal/httpx"
	kafkax "github.com/eargasm/sortly-recon/internal/kafka"
	"github.com/eargasm/sortly-recon/internal/movement"
	"github.com/eargasm/sortly-recon/internal/postgres"
	"github.com/eargasm/sortly-recon/internal/pullsync"
	"github.com/eargasm/sortly-recon/internal/recon"
	"github.com/eargasm/sortly-recon/internal/redisx"
	"github.com/eargasm/sortly-recon/internal/scan"
	"github.com/eargasm/sortly-recon/internal/sortly"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: scan audits and movement deductions
	scanProd := kafkax.NewProducer(cfg.KafkaBrokers, recon.TopicScanApplied, 1024)
	scanProd.Start(ctx)
	dedProd := kafkax.NewProducer(cfg.KafkaBrokers, recon.TopicDeductionApplied, 1024)
	dedProd.Start(ctx)

	repo := &recon.Repo{DB: db}
	matcher := recon.NewMatcher()
	zones := recon.NewZones(cfg.ZoneAliases)
	sortlyClient := sortly.New(cfg.SortlyBaseURL, cfg.SortlySecretKey)

	scanSvc := &scan.Service{
		Repo:        repo,
		Matcher:     matcher,
		Producer:    scanProd,
		Redis:       rdb,
		ServiceName: cfg.ServiceName,
	}
	moveSvc := &movement.Service{
		Repo:        repo,
		Zones:       zones,
		Producer:    dedProd,
		ServiceName: cfg.ServiceName,
	}
	syncSvc := &pullsync.Service{
		Repo:    repo,
		Sortly:  sortlyClient,
		Matcher: matcher,
		Zones:   zones,
	}

	router := httpx.NewRouter()
	(&httpx.JobsHandler{Repo: repo, Redis: rdb}).Register(router)
	(&httpx.ScansHandler{Svc: scanSvc}).Register(router)
	(&httpx.WebhookHandler{Svc: moveSvc, Redis: rdb}).Register(router)
	(&httpx.SyncHandler{Svc: syncSvc, Sortly: sortlyClient}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	scanProd.Close()
	dedProd.Close()
	scanProd.WaitClosed()
	dedProd.WaitClosed()
	cancel()
}
