package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// NewStore 以 root 为根目录构建只读文件存储，整站复用一份实例。
func NewStore(root string) (Store, error) {
	if root == "" {
		return nil, errors.New("root path required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", abs)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root symlinks: %w", err)
	}

	return &fileStore{root: abs, realRoot: resolved}, nil
}

// fileStore 不持有可变状态，可被并发请求共享。
// root 用于词法校验，realRoot 是解析符号链接后的根目录。
type fileStore struct {
	root     string
	realRoot string
}

func (s *fileStore) Stat(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	filePath, err := s.path(path)
	if err != nil {
		return Metadata{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return Metadata{}, translate(err)
	}

	return Metadata{
		IsFile:  info.Mode().IsRegular(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (s *fileStore) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirPath, err := s.path(path)
	if err != nil {
		return nil, err
	}

	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, translate(err)
	}
	defer dir.Close()

	// (*os.File).ReadDir 保留底层枚举顺序；os.ReadDir 会按名称排序。
	items, err := dir.ReadDir(-1)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, DirEntry{Name: item.Name(), IsDir: item.IsDir()})
	}
	return entries, nil
}

func (s *fileStore) Open(ctx context.Context, path string, start, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, fmt.Errorf("invalid span start %d", start)
	}

	filePath, err := s.path(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, translate(err)
	}

	length := end - start + 1
	if length < 0 {
		length = 0
	}
	return &span{
		SectionReader: io.NewSectionReader(f, start, length),
		file:          f,
	}, nil
}

// path 校验绝对路径位于 root 之内，并返回解析符号链接后的真实路径。
// 指向根目录之外的符号链接同样返回 ErrOutsideRoot。
func (s *fileStore) path(path string) (string, error) {
	if path == "" {
		return "", ErrOutsideRoot
	}
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(s.root, clean)
	}
	if !within(s.root, clean) {
		return "", ErrOutsideRoot
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		return "", translate(err)
	}
	if !within(s.realRoot, resolved) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func translate(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// span 将 SectionReader 与文件句柄绑定，Close 时释放句柄。
type span struct {
	*io.SectionReader
	file *os.File
}

func (s *span) Close() error {
	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	return f.Close()
}
