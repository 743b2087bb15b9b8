// Package byterange turns a Range request header into the byte span to serve.
// Only a single "bytes" range is supported; multi-range requests are answered
// with 416 instead of a multipart/byteranges body.
package byterange

import (
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

const unitPrefix = "bytes="

// Decision 是一次区间协商的结果，End 为闭区间。Status 为 416 时 Start/End 无意义。
type Decision struct {
	Status int
	Start  int64
	End    int64
}

// Length 返回需要发送的字节数。
func (d Decision) Length() int64 {
	if d.Status == fasthttp.StatusRequestedRangeNotSatisfiable {
		return 0
	}
	n := d.End - d.Start + 1
	if n < 0 {
		return 0
	}
	return n
}

// Full 返回完整文件的决策。
func Full(size int64) Decision {
	return Decision{Status: fasthttp.StatusOK, Start: 0, End: size - 1}
}

// Unsatisfiable 返回 416 决策。
func Unsatisfiable() Decision {
	return Decision{Status: fasthttp.StatusRequestedRangeNotSatisfiable}
}

// Negotiate 根据资源大小与 Range 头计算响应区间。
func Negotiate(size int64, header string) Decision {
	header = strings.TrimSpace(header)
	if header == "" {
		return Full(size)
	}
	if size <= 0 || strings.ContainsRune(header, ',') {
		return Unsatisfiable()
	}

	// 单位名大小写不敏感，fasthttp 只认小写。
	if len(header) >= len(unitPrefix) && strings.EqualFold(header[:len(unitPrefix)], unitPrefix) {
		header = unitPrefix + header[len(unitPrefix):]
	}

	start, end, err := fasthttp.ParseByteRange([]byte(header), int(size))
	if err != nil || start < 0 || start > end || int64(end) >= size {
		return Unsatisfiable()
	}
	return Decision{
		Status: fasthttp.StatusPartialContent,
		Start:  int64(start),
		End:    int64(end),
	}
}

// Apply 写入与决策一致的 Accept-Ranges / Content-Range / Content-Length。
func (d Decision) Apply(h *fasthttp.ResponseHeader, size int64) {
	h.Set(fasthttp.HeaderAcceptRanges, "bytes")
	switch d.Status {
	case fasthttp.StatusPartialContent:
		h.SetContentRange(int(d.Start), int(d.End), int(size))
		h.SetContentLength(int(d.Length()))
	case fasthttp.StatusRequestedRangeNotSatisfiable:
		h.Set(fasthttp.HeaderContentRange, "bytes */"+strconv.FormatInt(size, 10))
		h.SetContentLength(0)
	default:
		h.SetContentLength(int(size))
	}
}
