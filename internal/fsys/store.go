package fsys

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责读取根目录下的文件元数据、目录条目与字节区间。
type Store interface {
	// Stat 返回路径对应的元数据快照。不存在时返回 ErrNotFound。
	Stat(ctx context.Context, path string) (Metadata, error)

	// ReadDir 按文件系统的枚举顺序返回目录条目，不做排序。
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)

	// Open 打开文件并返回 [start, end] 闭区间的字节流。end < start 表示空区间。
	// 调用方负责 Close，Close 会释放底层文件句柄。
	Open(ctx context.Context, path string, start, end int64) (io.ReadCloser, error)
}

// Metadata 是一次 stat 的只读快照，生命周期与单个请求一致。
type Metadata struct {
	IsFile  bool
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry 描述目录中的一个条目。
type DirEntry struct {
	Name  string
	IsDir bool
}

// ErrNotFound 表示路径不存在。
var ErrNotFound = errors.New("path not found")

// ErrOutsideRoot 表示路径不在服务根目录之内。
var ErrOutsideRoot = errors.New("path outside root")
