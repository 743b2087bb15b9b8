package serve

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/utils/v2"
	"github.com/sirupsen/logrus"

	"github.com/anydoor/anydoor/internal/byterange"
	"github.com/anydoor/anydoor/internal/compress"
	"github.com/anydoor/anydoor/internal/config"
	"github.com/anydoor/anydoor/internal/freshness"
	"github.com/anydoor/anydoor/internal/fsys"
	"github.com/anydoor/anydoor/internal/listing"
	"github.com/anydoor/anydoor/internal/logging"
	"github.com/anydoor/anydoor/internal/metrics"
	"github.com/anydoor/anydoor/internal/server"
)

// 请求结果分类，用于日志与指标标签。
const (
	OutcomeFresh         = "fresh"
	OutcomeFull          = "full"
	OutcomePartial       = "partial"
	OutcomeUnsatisfiable = "unsatisfiable"
	OutcomeDirectory     = "directory"
	OutcomeNotFound      = "not_found"
)

const (
	defaultContentType = "application/octet-stream"
	htmlContentType    = "text/html; charset=utf-8"
	textContentType    = "text/plain; charset=utf-8"
)

// Options 汇总 Handler 的依赖，便于在测试中替换。
type Options struct {
	Config   *config.Config
	Store    fsys.Store
	Renderer *listing.Renderer
	Logger   *logrus.Logger
	// Metrics 可为空。
	Metrics *metrics.Recorder
	// Now 为空时使用 time.Now，用于 Expires 计算。
	Now func() time.Time
}

// Handler 是文件与目录请求的分发器，构建后只读，可被并发请求共享。
type Handler struct {
	root     string
	pattern  *regexp.Regexp
	minSize  int64
	cache    freshness.Options
	store    fsys.Store
	renderer *listing.Renderer
	logger   *logrus.Logger
	metrics  *metrics.Recorder
}

// NewHandler 校验依赖并冻结配置。
func NewHandler(opts Options) (*Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	cfg := opts.Config
	return &Handler{
		root:    cfg.Server.Root,
		pattern: cfg.Server.CompressPattern(),
		minSize: cfg.Server.CompressMinSize,
		cache: freshness.Options{
			ETag:         cfg.Cache.ETag,
			LastModified: cfg.Cache.LastModified,
			CacheControl: cfg.Cache.CacheControl,
			Expires:      cfg.Cache.Expires,
			MaxAge:       cfg.Cache.MaxAge.DurationValue(),
			Now:          opts.Now,
		},
		store:    opts.Store,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// Serve 处理已解析为根目录内绝对路径的 target。
func (h *Handler) Serve(c fiber.Ctx, target string) error {
	started := time.Now()

	meta, err := h.store.Stat(c.Context(), target)
	if err != nil {
		return h.fail(c, started, err)
	}

	switch {
	case meta.IsFile:
		return h.serveFile(c, target, meta, started)
	case meta.IsDir:
		return h.serveDirectory(c, target, started)
	default:
		return h.fail(c, started, fmt.Errorf("%s: not a regular file", target))
	}
}

// NotFound 输出统一的 404 页面，供路径解析失败等场景直接调用。
func (h *Handler) NotFound(c fiber.Ctx, cause error) error {
	return h.fail(c, time.Now(), cause)
}

func (h *Handler) serveFile(c fiber.Ctx, target string, meta fsys.Metadata, started time.Time) error {
	header := &c.Response().Header
	header.SetContentType(contentType(target))

	result := freshness.Evaluate(meta, freshness.Conditions{
		IfNoneMatch:     c.Get(fiber.HeaderIfNoneMatch),
		IfModifiedSince: c.Get(fiber.HeaderIfModifiedSince),
	}, h.cache)
	result.Apply(header)
	if result.Hit {
		c.Status(fiber.StatusNotModified)
		h.finish(c, started, OutcomeFresh, nil)
		return nil
	}

	decision := byterange.Negotiate(meta.Size, c.Get(fiber.HeaderRange))
	c.Status(decision.Status)
	decision.Apply(header, meta.Size)
	if decision.Status == fiber.StatusRequestedRangeNotSatisfiable {
		h.finish(c, started, OutcomeUnsatisfiable, nil)
		return nil
	}

	outcome := OutcomeFull
	plan := compress.NewPlan(target, c.Get(fiber.HeaderAcceptEncoding), h.pattern)
	if decision.Status == fiber.StatusPartialContent {
		outcome = OutcomePartial
		plan = plan.Identity()
	}
	if meta.Size < h.minSize {
		plan = plan.Identity()
	}
	plan.Apply(header)

	if c.Method() == fiber.MethodHead {
		h.finish(c, started, outcome, nil)
		return nil
	}

	src, err := h.store.Open(c.Context(), target, decision.Start, decision.End)
	if err != nil {
		return h.fail(c, started, err)
	}

	length := int(decision.Length())
	if plan.Compress {
		length = -1
	}
	body := h.observe(c, plan.Wrap(src), string(plan.Encoding), outcome)
	c.Response().SetBodyStream(body, length)

	h.finish(c, started, outcome, nil)
	return nil
}

func (h *Handler) serveDirectory(c fiber.Ctx, target string, started time.Time) error {
	entries, err := h.store.ReadDir(c.Context(), target)
	if err != nil {
		return h.fail(c, started, err)
	}

	page, err := h.renderer.Render(listing.Build(filepath.Base(target), h.relativeDir(target), entries))
	if err != nil {
		return h.fail(c, started, err)
	}

	c.Status(fiber.StatusOK)
	c.Response().Header.SetContentType(htmlContentType)
	c.Response().SetBody(page)
	if c.Method() != fiber.MethodHead {
		h.metrics.AddBytes("", int64(len(page)))
	}

	h.finish(c, started, OutcomeDirectory, nil)
	return nil
}

// fail 丢弃已写入的状态与头部，输出统一的 404 文本。
func (h *Handler) fail(c fiber.Ctx, started time.Time, cause error) error {
	requestID := server.RequestID(c)
	skipBody := c.Response().SkipBody
	c.Response().Reset()
	c.Response().SkipBody = skipBody
	if requestID != "" {
		c.Set(fiber.HeaderXRequestID, requestID)
	}

	c.Status(fiber.StatusNotFound)
	c.Response().Header.SetContentType(textContentType)
	c.Response().SetBodyString(fmt.Sprintf("%s is not a directory or file.", server.RequestPath(c)))

	h.finish(c, started, OutcomeNotFound, cause)
	return nil
}

// relativeDir 返回相对根目录的路径，根目录为空串，否则以单个 / 开头。
func (h *Handler) relativeDir(target string) string {
	rel, err := filepath.Rel(h.root, target)
	if err != nil || rel == "." {
		return ""
	}
	return "/" + filepath.ToSlash(rel)
}

func (h *Handler) finish(c fiber.Ctx, started time.Time, outcome string, err error) {
	elapsed := time.Since(started)
	h.metrics.Observe(outcome, elapsed)

	fields := logging.RequestFields(server.RequestID(c), c.Method(), server.RequestPath(c), c.Response().StatusCode(), outcome)
	fields["elapsed_ms"] = elapsed.Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Warn("serve_failed")
		return
	}
	h.logger.WithFields(fields).Info("serve_complete")
}

func contentType(target string) string {
	ext := filepath.Ext(target)
	if ext == "" {
		return defaultContentType
	}
	if mime := utils.GetMIME(ext); mime != "" {
		return mime
	}
	return defaultContentType
}
