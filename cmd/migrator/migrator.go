package main

import (
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	pg "github.com/NordCoder/Feedwatch/internal/repository/postgres"
)

// Applies the postgres state-backend migrations. Usage: migrator [up|down|status|version]
func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("FEEDWATCH_DB_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DB_DSN")
	}
	if dbURL == "" {
		log.Fatal("FEEDWATCH_DB_URL is empty")
	}
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	goose.SetBaseFS(pg.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := goose.Run(command, db, pg.MigrationsDir); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
	log.Printf("migrations: %s OK", command)
}
