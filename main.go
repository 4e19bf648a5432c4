// Package main our entry point.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Anmol-345/Arcanus/internal/config"
	"github.com/Anmol-345/Arcanus/internal/directory"
	"github.com/Anmol-345/Arcanus/internal/platform"
	"github.com/Anmol-345/Arcanus/internal/platform/memory"
	"github.com/Anmol-345/Arcanus/internal/platform/natsrt"
	"github.com/Anmol-345/Arcanus/internal/platform/pg"
	"github.com/Anmol-345/Arcanus/internal/platform/redisrt"
	"github.com/Anmol-345/Arcanus/internal/platform/rest"
	"github.com/Anmol-345/Arcanus/internal/report"
	"github.com/Anmol-345/Arcanus/internal/session"
	"github.com/Anmol-345/Arcanus/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log.Println("Starting application...")

	var (
		client   platform.Client
		dev      *memory.Platform
		pgStore  *pg.Store
		natsConn *nats.Conn
		redisCli *redis.Client
	)

	// Backend: Store, RPC and Auth.
	switch cfg.Backend {
	case config.BackendRest:
		rc := rest.New(cfg.PlatformURL, cfg.PlatformKey)
		client.Auth = rc
		client.Store = rc
		client.RPC = rc

	case config.BackendPostgres:
		log.Println("Initializing Database connection...")
		store, err := pg.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("could not connect to the postgresql database: %v", err)
		}
		if err := pg.Migrate(ctx, store.Pool()); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		pgStore = store
		client.Store = store
		client.RPC = store
		if cfg.PlatformURL != "" {
			client.Auth = rest.New(cfg.PlatformURL, cfg.PlatformKey)
		}

	case config.BackendMemory:
		dev = memory.New()
		client = dev.Client()
	}

	// Realtime: pub/sub fan-out for messages and room events.
	switch cfg.Realtime {
	case config.RealtimeNATS:
		log.Println("Initializing NATS connection...")
		var opts []nats.Option
		if cfg.NatsCred != "" {
			opts = append(opts, nats.UserCredentials(cfg.NatsCred))
		} else if cfg.NatsUser != "" && cfg.NatsPassword != "" {
			opts = append(opts, nats.UserInfo(cfg.NatsUser, cfg.NatsPassword))
		}
		opts = append(opts, nats.Timeout(5*time.Second))

		conn, err := nats.Connect(cfg.NatsURL, opts...)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		natsConn = conn

		rt, err := natsrt.New(ctx, conn)
		if err != nil {
			log.Fatalf("failed to initialize nats realtime: %v", err)
		}
		client.Realtime = rt

	case config.RealtimeRedis:
		log.Println("Initializing Redis connection...")
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisCli = redis.NewClient(redisOpts)
		if err := redisCli.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		client.Realtime = redisrt.New(redisCli)

	case config.RealtimeMemory:
		// Already wired by the memory platform.
	}

	sessions := session.New(client.Auth, cfg.JWTSecret)
	reporter := report.New(slog.Default())

	srv := &web.Server{
		Platform:  client,
		Sessions:  sessions,
		Directory: directory.New(client.Store, client.RPC, sessions),
		Reporter:  reporter,
		Dev:       dev,
		StaticDir: "static",
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			log.Printf("couldn't drain NATS conn: %+v", err)
		}
	}
	if redisCli != nil {
		if err := redisCli.Close(); err != nil {
			log.Printf("couldn't close redis client: %+v", err)
		}
	}
	if pgStore != nil {
		pgStore.Close()
	}

	log.Println("Server stopped")
}
