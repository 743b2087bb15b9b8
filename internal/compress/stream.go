package compress

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Wrap 返回 src 经过编码后的字节流。未启用压缩时原样返回 src。
//
// 编码在独立 goroutine 中通过 io.Pipe 完成：管道是同步的，下游读取速度决定了
// 文件读取速度。关闭返回值会使编码 goroutine 退出并关闭 src。
func (p Plan) Wrap(src io.ReadCloser) io.ReadCloser {
	if !p.Compress {
		return src
	}

	pr, pw := io.Pipe()
	go func() {
		defer src.Close()
		enc := newEncoder(p.Encoding, pw)
		_, err := io.Copy(enc, src)
		if closeErr := enc.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()
	return pr
}

func newEncoder(enc Encoding, w io.Writer) io.WriteCloser {
	switch enc {
	case Brotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression)
	case Deflate:
		zw, _ := zlib.NewWriterLevel(w, zlib.DefaultCompression)
		return zw
	default:
		gw, _ := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		return gw
	}
}
