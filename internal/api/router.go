package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/faisal-mohamed/rfdb-new/internal/auth"
)

// RouterConfig wires the HTTP surface together.
type RouterConfig struct {
	ServiceName string
	Auth        *auth.Auth
	Server      ServerInterface
	Health      *Handler
	// MCP is mounted under /mcp/ behind the same authentication when set.
	MCP         http.Handler
	CORSOrigins []string
	Issuer      string
	ClientID    string
	Logger      Logger
}

// NewRouter builds the echo instance serving the REST API, the OpenAPI docs,
// the health check and the MCP endpoints.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(cfg.Logger)

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", auth.HeaderUserID, auth.HeaderUserRole},
		AllowCredentials: true,
	}).Handler))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			cfg.Logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/health", echo.WrapHandler(http.HandlerFunc(cfg.Health.HandleHealth)))
	e.GET("/openapi.yaml", echo.WrapHandler(SpecHandler(cfg.Issuer)))
	e.GET("/docs", echo.WrapHandler(SwaggerHandler(cfg.Issuer, cfg.ClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(OAuthRedirectHandler)))

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(cfg.Auth.RequireAuth))
	apiGroup.Use(middleware.BodyLimit(uploadBodyLimit))
	apiGroup.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Skipper: func(c echo.Context) bool { return c.Path() != "/api/v1/workflow" },
		Limit:   actionBodyLimit,
	}))
	RegisterHandlers(apiGroup, cfg.Server)

	if cfg.MCP != nil {
		e.Any("/mcp/*", echo.WrapHandler(cfg.MCP), echo.WrapMiddleware(cfg.Auth.RequireAuth))
	}
	return e
}
