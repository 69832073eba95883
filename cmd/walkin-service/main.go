package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"qms/walkin-service/internal/config"
	"qms/walkin-service/internal/httpapi"
	"qms/walkin-service/internal/hub"
	"qms/walkin-service/internal/store"
	"qms/walkin-service/internal/store/memory"
	"qms/walkin-service/internal/store/postgres"
	"qms/walkin-service/internal/telemetry"
	"qms/walkin-service/internal/worker"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("walkin-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	queueStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer closeStore()

	h := hub.New()
	handler := httpapi.NewHandler(queueStore, httpapi.Options{
		AdminPasswordHash: cfg.AdminPasswordHash,
		SessionTTL:        cfg.SessionTTL,
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.AuthMiddleware(queueStore, handler.Routes()))
	mux.Handle("/realtime/", newRealtimeHandler(h))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "walkin-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("walkin-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	broadcaster := worker.NewBroadcaster(queueStore, h, worker.Config{BatchSize: cfg.BroadcastBatchSize})
	interval := cfg.BroadcastInterval
	if interval <= 0 {
		interval = time.Second
	}
	var running int32
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if !atomic.CompareAndSwapInt32(&running, 0, 1) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := broadcaster.Run(ctx); err != nil {
				log.Printf("broadcast error: %v", err)
			}
			cancel()
			atomic.StoreInt32(&running, 0)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func openStore(cfg config.Config) (store.QueueStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Printf("DB_DSN not set, using in-memory store")
		return memory.NewStore(memory.Options{RequireCustomerName: cfg.RequireCustomerName}), func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pgStore := postgres.NewStore(pool, postgres.Options{RequireCustomerName: cfg.RequireCustomerName})
	if err := pgStore.Seed(context.Background()); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgStore, pool.Close, nil
}

func newRealtimeHandler(h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
			} else {
				h.UpdateSubscription(client, hub.Subscription{ServiceID: parsed.ServiceID})
			}
		}
	})
}
