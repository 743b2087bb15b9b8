package server

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath 表示 URL 路径无法映射到根目录内。
var ErrInvalidPath = errors.New("invalid request path")

// Resolver 把已解码的 URL 路径映射为根目录下的绝对文件系统路径。
type Resolver struct {
	root string
}

// NewResolver 以 root 的绝对路径构建 Resolver。
func NewResolver(root string) (*Resolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve 清理 urlPath（去除 . 与 ..），拒绝 NUL 字节以及任何落在根目录之外的结果。
// 这里只做词法校验，符号链接由 fsys 解析后再次校验。
func (r *Resolver) Resolve(urlPath string) (string, error) {
	if strings.ContainsRune(urlPath, 0) {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + urlPath)
	target := filepath.Join(r.root, filepath.FromSlash(clean))

	rel, err := filepath.Rel(r.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return target, nil
}
