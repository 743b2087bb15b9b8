package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileHandler describes the component that answers file and directory
// requests. It allows injecting fake handlers during tests.
type FileHandler interface {
	// Serve handles a request already resolved to an absolute path under root.
	Serve(c fiber.Ctx, target string) error
	// NotFound answers requests whose path could not be resolved.
	NotFound(c fiber.Ctx, cause error) error
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger   *logrus.Logger
	Resolver *Resolver
	Files    FileHandler
}

const contextKeyRequestID = "_anydoor_request_id"

// NewApp builds a Fiber application with request-id middleware, panic
// recovery and the catch-all file route.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if opts.Files == nil {
		return nil, errors.New("file handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	app.Add([]string{fiber.MethodGet, fiber.MethodHead}, "/*", func(c fiber.Ctx) error {
		urlPath := RequestPath(c)
		if isDiagnosticsPath(urlPath) {
			return c.Next()
		}
		target, err := opts.Resolver.Resolve(urlPath)
		if err != nil {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "resolve",
				"path":       urlPath,
				"request_id": RequestID(c),
			}).Debug("path rejected")
			return opts.Files.NotFound(c, err)
		}
		return opts.Files.Serve(c, target)
	})

	return app, nil
}

// requestContextMiddleware 为每个请求生成请求 ID，并写入响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set(fiber.HeaderXRequestID, reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// RequestPath returns the decoded, normalized request path that the router
// resolves; log lines and error pages use it so they name the same path.
func RequestPath(c fiber.Ctx) string {
	return string(c.Request().URI().Path())
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
