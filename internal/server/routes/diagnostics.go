package routes

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/anydoor/anydoor/internal/config"
	"github.com/anydoor/anydoor/internal/metrics"
	"github.com/anydoor/anydoor/internal/version"
)

// fiber v3 的 Get 不再隐式注册 HEAD。
var readMethods = []string{fiber.MethodGet, fiber.MethodHead}

// RegisterDiagnosticsRoutes 暴露 /-/status 与 /-/metrics 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, cfg *config.Config, recorder *metrics.Recorder) {
	if app == nil || cfg == nil {
		return
	}

	payload := encodeStatus(cfg)
	app.Add(readMethods, "/-/status", func(c fiber.Ctx) error {
		return c.JSON(payload)
	})

	app.Add(readMethods, "/-/metrics", adaptor.HTTPHandler(recorder.Handler()))
}

type statusPayload struct {
	Version         string       `json:"version"`
	Root            string       `json:"root"`
	Addr            string       `json:"addr"`
	Compress        string       `json:"compress"`
	CompressMinSize int64        `json:"compress_min_size"`
	Cache           cachePayload `json:"cache"`
}

type cachePayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
	CacheControl  bool  `json:"cache_control"`
	Expires       bool  `json:"expires"`
	LastModified  bool  `json:"last_modified"`
	ETag          bool  `json:"etag"`
}

func encodeStatus(cfg *config.Config) statusPayload {
	return statusPayload{
		Version:         version.Full(),
		Root:            cfg.Server.Root,
		Addr:            cfg.Server.Addr(),
		Compress:        cfg.Server.Compress,
		CompressMinSize: cfg.Server.CompressMinSize,
		Cache: cachePayload{
			MaxAgeSeconds: int64(cfg.Cache.MaxAge.DurationValue() / time.Second),
			CacheControl:  cfg.Cache.CacheControl,
			Expires:       cfg.Cache.Expires,
			LastModified:  cfg.Cache.LastModified,
			ETag:          cfg.Cache.ETag,
		},
	}
}
