// Package freshness decides whether a client's cached copy of a file is still
// current and emits the validators that let it revalidate later.
//
// Validators are derived only from size and modification time:
//
//	ETag:          "<size hex>-<mtime unix nanos hex>"   (strong)
//	Last-Modified: mtime truncated to seconds, HTTP-date
//
// If-None-Match takes precedence over If-Modified-Since (RFC 9110 §13.2.2).
package freshness

import (
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/anydoor/anydoor/internal/fsys"
)

// Options 控制启用哪些校验器与缓存响应头。
type Options struct {
	ETag         bool
	LastModified bool
	CacheControl bool
	Expires      bool
	MaxAge       time.Duration

	// Now 为空时使用 time.Now，测试可注入固定时钟。
	Now func() time.Time
}

// Conditions 是请求中与新鲜度相关的条件头原始值。
type Conditions struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// Result 描述一次新鲜度判定。Hit 为 true 时调用方必须以 304 空响应结束请求。
type Result struct {
	Hit          bool
	ETag         string
	LastModified time.Time
	CacheControl string
	Expires      time.Time
}

// ETag 根据文件大小与修改时间生成强校验器。
func ETag(meta fsys.Metadata) string {
	return `"` + strconv.FormatInt(meta.Size, 16) + "-" + strconv.FormatInt(meta.ModTime.UnixNano(), 16) + `"`
}

// Evaluate 比较请求条件头与当前校验器，返回命中结果及需要写回的响应头。
func Evaluate(meta fsys.Metadata, cond Conditions, opts Options) Result {
	result := Result{}
	if opts.ETag {
		result.ETag = ETag(meta)
	}
	if opts.LastModified {
		result.LastModified = meta.ModTime.UTC().Truncate(time.Second)
	}
	if opts.CacheControl {
		result.CacheControl = "public, max-age=" + strconv.FormatInt(int64(opts.MaxAge/time.Second), 10)
	}
	if opts.Expires {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		result.Expires = now().Add(opts.MaxAge).UTC()
	}

	if inm := strings.TrimSpace(cond.IfNoneMatch); inm != "" {
		result.Hit = opts.ETag && matchesAny(inm, result.ETag)
		return result
	}

	if ims := strings.TrimSpace(cond.IfModifiedSince); ims != "" && opts.LastModified {
		since, err := fasthttp.ParseHTTPDate([]byte(ims))
		if err == nil && !result.LastModified.After(since) {
			result.Hit = true
		}
	}
	return result
}

// Apply 将校验器写入响应头；命中与未命中都会调用，以便客户端后续再验证。
func (r Result) Apply(h *fasthttp.ResponseHeader) {
	if r.ETag != "" {
		h.Set(fasthttp.HeaderETag, r.ETag)
	}
	if !r.LastModified.IsZero() {
		h.SetLastModified(r.LastModified)
	}
	if r.CacheControl != "" {
		h.Set(fasthttp.HeaderCacheControl, r.CacheControl)
	}
	if !r.Expires.IsZero() {
		h.Set(fasthttp.HeaderExpires, string(fasthttp.AppendHTTPDate(nil, r.Expires)))
	}
}

// matchesAny 对 If-None-Match 列表做弱比较。
func matchesAny(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && weak(candidate) == weak(etag) {
			return true
		}
	}
	return false
}

func weak(tag string) string {
	return strings.TrimPrefix(tag, "W/")
}
