package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/lac-hong-legacy/tutor_api/docs"
	"github.com/lac-hong-legacy/tutor_api/middleware"
	"github.com/lac-hong-legacy/tutor_api/services/handlers"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type HttpService struct {
	context.DefaultService

	authHandler        *handlers.AuthHandler
	userHandler        *handlers.UserHandler
	mediaHandler       *handlers.MediaHandler
	lessonHandler      *handlers.LessonHandler
	emailHandler       *handlers.EmailHandler
	leaderboardHandler *handlers.LeaderboardHandler

	auth      *middleware.AuthMiddleware
	rateLimit *middleware.RateLimitMiddleware

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	jwtSvc := svc.Service(JWT_SVC).(*JWTService)

	svc.auth = middleware.NewAuthMiddleware(jwtSvc)
	svc.rateLimit = middleware.NewRateLimitMiddleware(svc.Service(RATE_LIMIT_SVC).(*RateLimitService))

	svc.authHandler = handlers.NewAuthHandler(svc.Service(AUTH_SVC).(*AuthService))
	svc.userHandler = handlers.NewUserHandler(svc.Service(USER_SVC).(*UserService))
	svc.mediaHandler = handlers.NewMediaHandler(svc.Service(MEDIA_SVC).(*MediaService))
	svc.lessonHandler = handlers.NewLessonHandler(svc.Service(LESSON_SVC).(*LessonService))
	svc.emailHandler = handlers.NewEmailHandler(svc.Service(EMAIL_SVC).(*EmailService))
	svc.leaderboardHandler = handlers.NewLeaderboardHandler(svc.Service(LEADERBOARD_SVC).(*LeaderboardService))

	svc.app = svc.NewApp()

	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

// NewApp builds the fiber application with every route mounted. Handlers and
// middleware must be set before it is called.
func (svc *HttpService) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      shared.AppName,
		ErrorHandler: svc.HandleError,
		JSONEncoder:  shared.JSONAPI.Marshal,
		JSONDecoder:  shared.JSONAPI.Unmarshal,
		BodyLimit:    6 * 1024 * 1024,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	docs.SwaggerInfo.BasePath = ""

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(MonitoringMiddleware())

	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	svc.registerRoutes(v1)
	svc.registerRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	return app
}

func (svc *HttpService) registerRoutes(r fiber.Router) {
	required := svc.auth.RequiredAuth()

	user := r.Group("/user")
	user.Post("/register", svc.rateLimit.Limit(LimitRegister), svc.authHandler.Register)
	user.Post("/login", svc.rateLimit.Limit(LimitLogin), svc.authHandler.Login)
	user.Post("/google", svc.rateLimit.Limit(LimitLogin), svc.authHandler.GoogleLogin)
	user.Post("/refresh", svc.rateLimit.Limit(LimitRefresh), svc.authHandler.RefreshToken)
	user.Post("/logout", required, svc.authHandler.Logout)
	user.Put("/deleteUser", required, svc.authHandler.DeleteUser)
	user.Get("/profile", required, svc.userHandler.GetUserProfile)
	user.Put("/profile", required, svc.userHandler.UpdateUserProfile)
	user.Post("/profile/image", required, svc.mediaHandler.UploadProfileImage)
	user.Put("/subjects", required, svc.userHandler.UpdateSubjects)

	lessons := r.Group("/lessons", required)
	lessons.Get("/", svc.lessonHandler.ListLessons)
	lessons.Post("/startNew/:lessonId?", svc.lessonHandler.StartLesson)
	lessons.Get("/:lessonId", svc.lessonHandler.GetLesson)
	lessons.Post("/:lessonId/chat", svc.rateLimit.Limit(LimitChat), svc.lessonHandler.Chat)
	lessons.Post("/:lessonId/questions", svc.lessonHandler.LogQuestion)
	lessons.Post("/:lessonId/answers", svc.lessonHandler.LogAnswer)
	lessons.Post("/:lessonId/responses", svc.lessonHandler.LogBotResponse)
	lessons.Get("/:lessonId/isOver", svc.lessonHandler.IsOver)
	lessons.Post("/:lessonId/analyze", svc.rateLimit.Limit(LimitAnalyze), svc.lessonHandler.Analyze)
	lessons.Post("/:lessonId/finish", svc.lessonHandler.FinishLesson)

	email := r.Group("/email", required)
	email.Post("/sendMail", svc.rateLimit.Limit(LimitSendMail), svc.emailHandler.SendMail)
	email.Get("/getUserMail/:id?", svc.emailHandler.GetUserMail)

	r.Get("/leaderboard", svc.auth.OptionalAuth(), svc.leaderboardHandler.GetLeaderboard)
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

// HandleError is the fiber error handler: every error returned by a handler
// ends up here and is written in the response envelope.
func (svc *HttpService) HandleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.WithError(err).WithFields(log.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Error("Request failed")
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ResponseNotFound(c)
	}

	log.WithError(err).WithFields(log.Fields{
		"path":   c.Path(),
		"method": c.Method(),
	}).Error("Unhandled error")
	return shared.ResponseInternalError(c)
}
