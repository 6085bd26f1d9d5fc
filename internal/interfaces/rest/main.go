package rest

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	infra "github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/auth"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/interfaces/rest/handler"
	"github.com/Jojopunk/elevate360-skill-builder/internal/interfaces/rest/middleware"
	"github.com/Jojopunk/elevate360-skill-builder/internal/progress"
	"github.com/Jojopunk/elevate360-skill-builder/internal/user"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiVersion = "api/v1"

// Services use cases exposed over http
type Services struct {
	UserUseCase     user.UserUseCase
	ProgressUseCase progress.ProgressUseCase
	VideoUseCase    video.VideoUseCase
	Resolver        video.SourceResolver
	Seeder          handler.ContentSeeder
}

// NewServer create http transport server
func NewServer(
	conn driver.ITransactionalDB,
	rdb driver.KeyValueDB,
	option *infra.AppConfig,
	services *Services,
	logger *zap.Logger,
) *echo.Echo {
	var (
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		calendar  = handler.NewCalendar(option.Location())
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.SessionTimeout)
		inBlackList = func(ctx context.Context, token string) (bool, error) {
			return rdb.Exists(ctx, auth.BlacklistKey(token))
		}
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: inBlackList,
		})
		optionalJWTMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: inBlackList,
			Optional:    true,
		})
		refreshMiddleware = middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
			Threshold: option.SessionRefresh,
		})
		authLimiter = middleware.RateLimit(middleware.NewClientLimiter(&middleware.RateLimitOption{
			Group: "auth",
			Rate:  rate.Limit(option.Security.LoginRate),
			Burst: option.Security.LoginBurst,
		}))
	)
	app.HideBanner = true

	registerLivenessProbe(app, conn, rdb)
	if option.DevOP.Metrics {
		app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)

		app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
			Skipper: func(e echo.Context) bool {
				return strings.HasPrefix(e.Request().RequestURI, "/healthz") ||
					strings.HasPrefix(e.Request().RequestURI, "/metrics")
			},
		}))
	}
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				body, known := handler.ErrorResponse(err)
				if !known {
					logger.Error(err.Error(), zap.String("trace.id", traceID), zap.String("url.path", c.Request().RequestURI))
				}
				c.JSON(body.Code, body.SetTraceID(traceID))
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Static(option.Media.PublicPath, option.Media.DownloadDir)

	var (
		UserHandler      = handler.NewUserHandler(jwtUtil, rdb, services.UserUseCase, validator)
		ChallengeHandler = handler.NewChallengeHandler(jwtUtil, services.ProgressUseCase, services.Seeder, validator, calendar)
		ProgressHandler  = handler.NewProgressHandler(services.ProgressUseCase, jwtUtil, calendar)
		VideoHandler     = handler.NewVideoHandler(services.VideoUseCase, validator)
		PlaybackHandler  = handler.NewPlaybackHandler(services.Resolver, uuid.RandomGenerator{})
		authenticated    = []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware}
	)

	untimed := createEndpoint(app,
		&endpoint{
			apiVersion:  apiVersion,
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix: "/user",
					routes: []*route{
						{"POST", "/login", UserHandler.HandleSignIn, []echo.MiddlewareFunc{authLimiter}},
						{"POST", "/sign-up", UserHandler.HandleSignUp, []echo.MiddlewareFunc{authLimiter}},
						{"PUT", "/sign-out", UserHandler.HandleSignOut, []echo.MiddlewareFunc{jwtMiddleware}},
						{"GET", "/exists", UserHandler.HandleUserExists, nil},
						{"GET", "/me", UserHandler.HandleGetProfile, authenticated},
						{"PUT", "/me", UserHandler.HandleUpdateProfile, authenticated},
						{"GET", "/me/education", UserHandler.HandleListEducation, authenticated},
						{"POST", "/me/education", UserHandler.HandleAddEducation, authenticated},
						{"DELETE", "/me/education/:id", UserHandler.HandleDeleteEducation, authenticated},
					},
				},
				{
					prefix: "/challenge",
					routes: []*route{
						{"GET", "/daily", ChallengeHandler.HandleGetDaily, []echo.MiddlewareFunc{optionalJWTMiddleware, refreshMiddleware}},
						{"POST", "/reseed", ChallengeHandler.HandleReseed, authenticated},
						{"POST", "/:id/answer", ChallengeHandler.HandleSubmitAnswer, authenticated},
					},
				},
				{
					prefix:      "/progress",
					middlewares: authenticated,
					routes: []*route{
						{"GET", "/summary", ProgressHandler.HandleGetSummary, nil},
						{"GET", "/streak", ProgressHandler.HandleGetStreak, nil},
						{"GET", "/activity", ProgressHandler.HandleGetActivity, nil},
					},
				},
				{
					prefix: "/videos",
					routes: []*route{
						{"GET", "", VideoHandler.HandleListVideos, nil},
						{"GET", "/downloaded", VideoHandler.HandleListDownloaded, nil},
						{"GET", "/resolve", VideoHandler.HandleResolve, nil},
						{"GET", "/:id", VideoHandler.HandleGetVideo, nil},
						{"GET", "/:id/source", VideoHandler.HandleGetSource, nil},
					},
				},
				{
					prefix:  "/videos",
					untimed: true,
					routes: []*route{
						{"POST", "/:id/download", VideoHandler.HandleDownload, nil},
					},
				},
				{
					prefix:  "/ws",
					untimed: true,
					routes: []*route{
						{"GET", "/playback", websocket.WithHeartbeat(PlaybackHandler.NewSession), nil},
					},
				},
			},
		})
	// echo runs app middlewares after routing, so the matched pattern is known here
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: untimed.has,
	}))
	return app
}

// Serve runs app until ctx is done, then shuts it down gracefully
func Serve(ctx context.Context, app *echo.Echo, option *infra.AppConfig, logger *zap.Logger) error {
	printRoutes(app, logger)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Info("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if db.Ping(ctx) == nil && rdb.Ping(ctx) == nil {
			c.NoContent(http.StatusOK)
		} else {
			c.NoContent(http.StatusServiceUnavailable)
		}
		return nil
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
