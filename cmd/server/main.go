package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/ledger"
	"pos-service/internal/remote"
	"pos-service/internal/retry"
	"pos-service/internal/session"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS service")

	tp, err := util.InitTracer("pos-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	health := retry.NewHealth()

	var remoteStore remote.Store
	online := true
	remoteStore, err = remote.NewRedisStore(
		cfg.Remote.RedisAddr, cfg.Remote.RedisPassword, cfg.Remote.RedisDB, cfg.Remote.CallTimeout)
	if err != nil {
		log.Printf("Remote store unreachable, starting offline with seed catalog: %v", err)
		remoteStore = remote.NewSeededMemoryStore()
		online = false
	} else {
		health.MarkConnected()
		log.Println("Remote store connected")
	}
	defer remoteStore.Close()

	executor := retry.NewExecutor(remoteStore, health, cfg.Business.RetryAttempts, cfg.Business.RetryBaseDelay)

	var eventPublisher *broker.EventPublisher
	var producer *broker.Producer
	if online {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	snapshot := cache.New(executor, cfg.Business.CacheTTL)
	ctx := context.Background()
	if err := snapshot.Refresh(ctx, cache.KindInventory); err != nil {
		log.Printf("Initial inventory fetch failed, seed catalog in use: %v", err)
	}
	if err := snapshot.Refresh(ctx, cache.KindSales); err != nil {
		log.Printf("Initial sales fetch failed: %v", err)
	}

	stockLedger := ledger.NewStockLedger(executor, snapshot, eventPublisher)
	saleLedger := ledger.NewSaleLedger(executor, snapshot, eventPublisher)
	catalog := ledger.NewCatalog(executor, snapshot, eventPublisher)

	sessions := session.NewManager(stockLedger, saleLedger, snapshot, cfg.Business.SessionIdleTimeout)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go health.Monitor(workerCtx, remoteStore, cfg.Business.HealthCheckEvery)
	go sessions.StartSweeper(workerCtx, cfg.Business.SessionIdleTimeout/2)

	refreshWorker := worker.NewRefreshWorker(snapshot, cfg.Business.CacheRefreshEvery)
	go refreshWorker.Start(workerCtx)

	var cacheWorker *worker.CacheWorker
	var archiveWorker *worker.ArchiveWorker
	var archive *store.Archive
	if online {
		cacheConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		cacheWorker = worker.NewCacheWorker(cacheConsumer, snapshot)
		go func() {
			if err := cacheWorker.Start(workerCtx); err != nil {
				log.Printf("Cache worker error: %v", err)
			}
		}()

		archive, err = store.NewArchive(cfg.Archive.DatabaseURL)
		if err != nil {
			log.Printf("Sales archive unavailable, archiving disabled: %v", err)
			archive = nil
		} else {
			defer archive.Close()
			archiveConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, "pos-archive-group")
			archiveWorker = worker.NewArchiveWorker(archiveConsumer, archive)
			go func() {
				if err := archiveWorker.Start(workerCtx); err != nil {
					log.Printf("Archive worker error: %v", err)
				}
			}()
		}
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(sessions, snapshot, catalog, archive, health)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if cacheWorker != nil {
		cacheWorker.Stop()
	}
	if archiveWorker != nil {
		archiveWorker.Stop()
	}

	log.Println("Server exited")
}
