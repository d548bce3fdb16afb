package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/appmanager"
	"github.com/eddiemckee112-oss/bookie-vision-sub000/internal/store"
)

func connString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)
}

func main() {
	// .env is for local dev only; deployed environments set real env vars.
	_ = godotenv.Load("../.env")

	dsn := connString()

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal("failed to connect pgx pool:", err)
	}
	defer pool.Close()

	// lib/pq connection backing the bulk category update path.
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal("failed to open sql.DB:", err)
	}
	defer sqlDB.Close()

	appmanager.SetStore(store.NewPostgresStore(pool))
	appmanager.SetDB(sqlDB)
	appmanager.SetPgxPool(pool)

	manager := appmanager.NewAppManager()

	servicesCfg, err := appmanager.LoadServiceSequence("../services.yaml")
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
}
