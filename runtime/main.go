package main

import (
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"

	"github.com/lac-hong-legacy/tutor_api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using process environment")
	}

	configureLogging(os.Getenv("LOG_LEVEL"))

	ctx, err := context.NewCtx(
		&services.DatabaseService{},
		&services.RedisService{},
		&services.JWTService{},
		&services.RateLimitService{},
		&services.MonitoringService{},

		&services.EmailService{},
		&services.OracleService{},
		&services.LeaderboardService{},
		&services.MinIOService{},
		&services.MediaService{},
		&services.GoogleAuthService{},

		&services.AuthService{},
		&services.UserService{},
		&services.LessonService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create service context")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context stopped")
		return
	}
}

// configureLogging applies LOG_LEVEL to both loggers. Unknown values fall
// back to info.
func configureLogging(level string) {
	level = strings.ToLower(strings.TrimSpace(level))

	zlevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zlevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zlevel)

	llevel, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		llevel = logrus.InfoLevel
	}
	logrus.SetLevel(llevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
