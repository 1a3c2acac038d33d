package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseService struct {
	context.DefaultService
	db *gorm.DB

	driver   string
	database string
}

const DATABASE_SVC = "database_svc"

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// Models lists every table managed by AutoMigrate.
var Models = []interface{}{
	&model.User{},
	&model.RefreshToken{},
	&model.PendingSubject{},
	&model.Lesson{},
	&model.LessonMessage{},
	&model.QuestionLog{},
	&model.EmailRecord{},
	&model.LeaderboardEntry{},
}

func (ds DatabaseService) Id() string {
	return DATABASE_SVC
}

func (ds DatabaseService) Db() *gorm.DB {
	return ds.db
}

func (ds *DatabaseService) Configure(ctx *context.Context) error {
	ds.driver = os.Getenv("DB_DRIVER")
	if ds.driver == "" {
		ds.driver = DriverPostgres
	}

	if ds.driver == DriverSqlite {
		ds.database = os.Getenv("DB_DATABASE")
		if ds.database == "" {
			ds.database = "tutor.db"
		}
		return ds.DefaultService.Configure(ctx)
	}

	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := getEnv("DB_PASSWORD", "postgres")
		dbname := getEnv("DB_NAME", "tutor_api")
		sslmode := getEnv("DB_SSLMODE", "disable")
		timezone := getEnv("DB_TIMEZONE", "UTC")

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *DatabaseService) dialector() gorm.Dialector {
	if ds.driver == DriverSqlite {
		return sqlite.Open(ds.database)
	}
	return postgres.Open(ds.database)
}

func (ds *DatabaseService) Start() (err error) {
	// Retry connection with exponential backoff
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.WithFields(log.Fields{"driver": ds.driver, "attempt": attempt}).Info("Connecting to database")

		ds.db, err = gorm.Open(ds.dialector(), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	if err = Migrate(ds.db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	ticker := time.NewTicker(24 * time.Hour)
	go func() {
		for range ticker.C {
			if err := ds.CleanupExpiredData(); err != nil {
				log.Printf("Failed to cleanup expired data: %v", err)
			}
		}
	}()

	log.Println("Database connected and migrated successfully")
	return nil
}

// Migrate creates or updates every table in Models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// CleanupExpiredData drops refresh tokens past their expiry. Their JWTs would
// fail verification anyway.
func (ds *DatabaseService) CleanupExpiredData() error {
	result := ds.db.Where("expires_at < ?", time.Now()).Delete(&model.RefreshToken{})
	if result.Error != nil {
		return ds.HandleError(result.Error)
	}
	log.WithField("deleted", result.RowsAffected).Info("Expired refresh tokens removed")
	return nil
}

func (ds *DatabaseService) Shutdown() {
	if ds.db == nil {
		return
	}
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *DatabaseService) HandleError(err error) error {
	return HandleDBError(err)
}

// HandleDBError classifies and logs a database error, keeping the cause
// reachable through errors.Is.
func HandleDBError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	case strings.Contains(msg, "duplicate key value violates unique constraint"),
		strings.Contains(msg, "UNIQUE constraint failed"):
		statusCode = http.StatusConflict
		errorType = "UNIQUE_CONSTRAINT"
	case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "no such table"):
		statusCode = http.StatusInternalServerError
		errorType = "SCHEMA_ERROR"
	case strings.Contains(msg, "connection refused"):
		statusCode = http.StatusServiceUnavailable
		errorType = "DATABASE_CONNECTION_ERROR"
	default:
		statusCode = http.StatusInternalServerError
		errorType = "INTERNAL_ERROR"
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       msg,
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
