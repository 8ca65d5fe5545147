package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daway0/pors/internal/config"
	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/notify"
	"github.com/daway0/pors/internal/router"
	"github.com/daway0/pors/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	mailer := notify.NewMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.NotifyMaxTries)

	r := router.New(cfg, queries, pool, hub, mailer)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
