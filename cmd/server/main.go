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

	"campuswallet/internal/config"
	"campuswallet/internal/handler"
	"campuswallet/internal/infrastructure/cache"
	"campuswallet/internal/infrastructure/database"
	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/infrastructure/mq"
	"campuswallet/internal/job"
	"campuswallet/pkg/idgen"
)

func main() {
	cfg := config.LoadConfig("config/config.yaml")

	idgen.Init(1)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)

	producer := mq.NewProducer(&cfg.Kafka)
	defer producer.Close()

	locks := lock.NewRedisManager(
		redisClient,
		time.Duration(cfg.Business.LockTTLSeconds)*time.Second,
		time.Duration(cfg.Business.LockWaitMillis)*time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, producer, cfg)
	go outboxSender.Start(ctx)

	reconcileJob := job.NewReconcileJob(db, cfg)
	go reconcileJob.Start(ctx)

	router := handler.SetupRouter(db, locks, cfg)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("server stopped")
}
