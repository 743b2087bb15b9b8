// Package compress negotiates a content coding for a file response and wraps
// the outgoing byte stream with the matching streaming encoder.
//
// Supported codings, in fixed preference order: br, gzip, deflate (zlib
// framing, as HTTP defines it). Among the codings a client accepts with the
// highest q-value, the preference order decides.
package compress

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

// Encoding 是 Content-Encoding 的取值。
type Encoding string

const (
	Identity Encoding = ""
	Brotli   Encoding = "br"
	Gzip     Encoding = "gzip"
	Deflate  Encoding = "deflate"
)

var preference = []Encoding{Brotli, Gzip, Deflate}

// Plan 是单个请求的压缩决策，创建后不再修改。
type Plan struct {
	// Eligible 表示路径匹配压缩规则，响应需携带 Vary: Accept-Encoding。
	Eligible bool
	Compress bool
	Encoding Encoding
}

// NewPlan 仅当路径匹配规则且客户端声明支持某种编码时才启用压缩。
func NewPlan(filePath, acceptEncoding string, pattern *regexp.Regexp) Plan {
	if pattern == nil || !pattern.MatchString(filePath) {
		return Plan{}
	}
	enc := Negotiate(acceptEncoding)
	return Plan{
		Eligible: true,
		Compress: enc != Identity,
		Encoding: enc,
	}
}

// Identity 返回保留 Vary 信息但不压缩的计划，用于 206 等不能压缩的响应。
func (p Plan) Identity() Plan {
	return Plan{Eligible: p.Eligible}
}

// Apply 写入 Content-Encoding / Vary；压缩时长度未知，改为 chunked 传输。
func (p Plan) Apply(h *fasthttp.ResponseHeader) {
	if p.Eligible {
		h.Add(fasthttp.HeaderVary, fasthttp.HeaderAcceptEncoding)
	}
	if !p.Compress {
		return
	}
	h.Set(fasthttp.HeaderContentEncoding, string(p.Encoding))
	h.SetContentLength(-1)
}

// Negotiate 解析 Accept-Encoding（含 q 值与 *），返回最合适的编码；无可用编码时返回 Identity。
func Negotiate(header string) Encoding {
	if strings.TrimSpace(header) == "" {
		return Identity
	}

	weights := make(map[Encoding]float64, len(preference))
	wildcard := -1.0
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(part, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := parseQ(params)
		if name == "*" {
			wildcard = q
			continue
		}
		weights[Encoding(name)] = q
	}

	best, bestQ := Identity, 0.0
	for _, enc := range preference {
		q, ok := weights[enc]
		if !ok {
			if wildcard < 0 {
				continue
			}
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

// parseQ 读取 q 参数，缺省为 1，非法值视为 0。
func parseQ(params string) float64 {
	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || q < 0 {
			return 0
		}
		if q > 1 {
			return 1
		}
		return q
	}
	return 1
}
