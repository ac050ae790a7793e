package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"libraryadmin/internal/collab"
	"libraryadmin/internal/config"
	"libraryadmin/internal/events"
	"libraryadmin/internal/handlers"
	"libraryadmin/internal/redisx"
	"libraryadmin/internal/repositories"
	"libraryadmin/internal/services"
	"libraryadmin/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := collab.New(cfg.APIURL, cfg.APITimeout)

	// Saga journal is optional; without it partial runs are only logged.
	var sagaRepo repositories.SagaRepository
	if cfg.DatabaseURL != "" {
		db, err := repositories.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		sagaRepo = repositories.NewSagaRepository(db)
	} else {
		log.Printf("[WARN] DATABASE_URL not set, saga journal disabled")
	}

	var (
		store session.Store  = session.NewMemoryStore()
		guard services.Guard = services.NewLocalGuard()
	)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Printf("[WARN] redis unavailable at %s, using in-process sessions and locks: %v", cfg.RedisAddr, err)
		} else {
			store = redisx.NewSessionStore(rdb)
			guard = redisx.NewLocker(rdb, redisx.TTLLock)
			defer rdb.Close()
		}
	}

	// The producer outlives the signal: it is stopped only after in-flight
	// requests have published.
	var publisher events.Publisher = events.NopPublisher{}
	var stopEvents []func()
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024)
		pctx, pcancel := context.WithCancel(context.Background())
		producer.Start(pctx)
		publisher = events.NewKafkaPublisher(producer, cfg.ServiceName)
		stopEvents = append(stopEvents, func() {
			pcancel()
			producer.WaitClosed()
		})
	}

	sessions := session.NewManager(client, store, session.NewTokens(cfg.JWTSecret, cfg.ServiceName), cfg.SessionTTL)

	libraryService := services.NewLibraryService(
		func(s *session.Session) services.Collaborator { return client.WithToken(s.Token) },
		sagaRepo,
		guard,
		publisher,
		services.WithLocation(cfg.Location),
	)

	router := gin.Default()

	handlers.RegisterRoutes(router, libraryService, sessions)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout*6 + 5*time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[INFO] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.APITimeout*6)
	defer cancel()
	drain(shutdownCtx, srv, stopEvents...)
}

// drain stops accepting requests, waits for in-flight ones, then runs the
// closers in order.
func drain(ctx context.Context, srv *http.Server, closers ...func()) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] server shutdown: %v", err)
	}
	for _, closeFn := range closers {
		closeFn()
	}
}
