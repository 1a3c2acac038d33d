package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lac-hong-legacy/tutor_api/seed/seeders"
	"github.com/lac-hong-legacy/tutor_api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, users, lessons")
		dbPath   = flag.String("db", "", "Database path (overrides DB_DATABASE env var)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	databasePath := *dbPath
	if databasePath == "" {
		databasePath = os.Getenv("DB_DATABASE")
		if databasePath == "" {
			databasePath = "tutor.db"
		}
	}

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", databasePath)

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		err = mainSeeder.SeedAll()
	case "users":
		_, err = mainSeeder.SeedUsersOnly()
	case "lessons":
		err = mainSeeder.SeedLessonsOnly()
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'users' or 'lessons'", *seedType)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding operation completed successfully!")
}

func showHelp() {
	log.Println(`
Database seeding tool for the tutor API (sqlite only)

Usage: go run ./seed [flags]

Flags:
  -type string   all, users or lessons (default "all")
  -db string     database path (overrides DB_DATABASE, default tutor.db)
  -help          show this help message

Demo accounts use the password ` + seeders.DemoPassword)
}
