package main

import (
	"context"
	"log"
	"time"

	"github.com/munaburhan/school-system/internal/config"
	"github.com/munaburhan/school-system/internal/db"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Seed(ctx, pool); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("default admin user and permission matrix seeded")
}
