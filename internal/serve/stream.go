package serve

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/anydoor/anydoor/internal/logging"
	"github.com/anydoor/anydoor/internal/server"
)

// observedBody 统计实际写给客户端的字节数，并在 fasthttp 关闭 body stream 时
// 记录中途失败。fasthttp 在响应结束或连接断开时都会调用 Close。
type observedBody struct {
	io.ReadCloser

	handler  *Handler
	encoding string
	fields   logrus.Fields

	written int64
	eof     bool
	err     error
	closed  bool
}

// observe 在 handler 返回前捕获日志字段；之后 fiber.Ctx 会被复用，不能再访问。
func (h *Handler) observe(c fiber.Ctx, body io.ReadCloser, encoding, outcome string) io.ReadCloser {
	return &observedBody{
		ReadCloser: body,
		handler:    h,
		encoding:   encoding,
		fields:     logging.RequestFields(server.RequestID(c), c.Method(), server.RequestPath(c), c.Response().StatusCode(), outcome),
	}
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.written += int64(n)
	switch {
	case errors.Is(err, io.EOF):
		b.eof = true
	case err != nil:
		b.err = err
	}
	return n, err
}

func (b *observedBody) Close() error {
	err := b.ReadCloser.Close()
	if b.closed {
		return err
	}
	b.closed = true

	h := b.handler
	h.metrics.AddBytes(b.encoding, b.written)

	cause := b.err
	if cause == nil && !b.eof {
		cause = fmt.Errorf("stream aborted after %d bytes", b.written)
	}
	if cause == nil {
		return err
	}

	h.metrics.StreamFailed()
	b.fields["bytes"] = b.written
	b.fields["encoding"] = b.encoding
	b.fields["error"] = cause.Error()
	h.logger.WithFields(b.fields).Error("stream_failed")
	return err
}
