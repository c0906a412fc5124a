package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/truefeedback/inbox-api/docs"
	"github.com/truefeedback/inbox-api/internal/api/handler"
	"github.com/truefeedback/inbox-api/internal/api/middleware"
	"github.com/truefeedback/inbox-api/internal/core/ports"
	"github.com/truefeedback/inbox-api/internal/core/service"
	mongorepo "github.com/truefeedback/inbox-api/internal/infrastructure/db/mongo"
	redisstore "github.com/truefeedback/inbox-api/internal/infrastructure/db/redis"
	"github.com/truefeedback/inbox-api/internal/pkg/config"
)

const idempotencyWindow = time.Hour

// Dependencies are the process-wide handles the router wires into services.
type Dependencies struct {
	DB        *mongo.Database
	Redis     *redis.Client
	Config    *config.Config
	Sender    ports.CodeSender
	Suggester ports.Suggester // nil serves the built-in suggestions
	Log       zerolog.Logger
}

// Services are the use cases exposed over HTTP.
type Services struct {
	Accounts    ports.AccountService
	Acceptance  ports.AcceptanceService
	Messages    ports.MessageService
	Suggestions ports.SuggestionService
	Readiness   map[string]handler.PingFunc
}

// NewRouter builds the services from deps and returns the Echo instance with
// all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	repo := mongorepo.NewAccountRepository(deps.DB)
	dedup := redisstore.NewSubmissionDedup(deps.Redis, idempotencyWindow)

	svc := Services{
		Accounts: service.NewAccountService(
			repo,
			service.NewCodeIssuer(deps.Config.VerifyCodeTTL),
			deps.Sender,
			deps.Log,
			service.AccountOptions{
				JWTSecret:   deps.Config.JWTSecret,
				TokenTTL:    deps.Config.TokenTTL,
				SendTimeout: deps.Config.SMTP.Timeout,
			},
		),
		Acceptance:  service.NewAcceptanceService(repo, deps.Log),
		Messages:    service.NewMessageService(repo, dedup, deps.Log),
		Suggestions: service.NewSuggestionService(deps.Suggester, deps.Log),
		Readiness: map[string]handler.PingFunc{
			"mongodb": func(ctx context.Context) error { return deps.DB.Client().Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		},
	}
	return NewServer(svc, deps.Config.JWTSecret, deps.Log)
}

// NewServer registers middleware and routes over already built services.
func NewServer(svc Services, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Metrics())

	accountHandler := handler.NewAccountHandler(svc.Accounts)
	acceptanceHandler := handler.NewAcceptanceHandler(svc.Acceptance)
	messageHandler := handler.NewMessageHandler(svc.Messages)
	suggestionHandler := handler.NewSuggestionHandler(svc.Suggestions)
	authMiddleware := middleware.Auth(jwtSecret)

	// --- Account routes ---
	e.POST("/sign-up", accountHandler.SignUp)
	e.POST("/verify-code", accountHandler.VerifyCode)
	e.POST("/sign-in", accountHandler.SignIn)
	e.GET("/check-username-unique", accountHandler.CheckUsernameUnique)

	// --- Public intake ---
	e.POST("/send-message", messageHandler.Send)
	e.POST("/suggest-messages", suggestionHandler.Suggest)

	// --- Owner routes ---
	e.GET("/accept-messages", acceptanceHandler.Get, authMiddleware)
	e.POST("/accept-messages", acceptanceHandler.Set, authMiddleware)
	e.GET("/messages", messageHandler.List, authMiddleware)
	e.DELETE("/messages/:id", messageHandler.Delete, authMiddleware)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(svc.Readiness).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
