package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/k-cafe/api/internal/config"
	"github.com/k-cafe/api/internal/database"
	"github.com/k-cafe/api/internal/mirror"
	"github.com/k-cafe/api/internal/router"
	"github.com/k-cafe/api/internal/ws"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	// Do not fail hard if Postgres is down at boot: the terminals keep
	// working against the local mirror until it comes back.
	if err := pool.Ping(ctx); err != nil {
		log.Printf("WARNING: database unreachable at startup, serving from local mirror: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to reach local mirror at %s: %v", cfg.RedisAddr, err)
	}
	m := mirror.New(rdb)

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, m, hub)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
