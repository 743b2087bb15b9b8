// Package listing 把目录枚举结果渲染为 HTML 列表页。
package listing

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/anydoor/anydoor/internal/fsys"
)

//go:embed templates/dir.html
var templateFS embed.FS

// Entry 是列表中的一行。
type Entry struct {
	Name  string
	Icon  string
	Href  string
	IsDir bool
}

// Listing 是模板的数据模型。Dir 在根目录时为空，否则以单个 / 开头。
type Listing struct {
	Title string
	Dir   string
	Files []Entry
}

// Build 按枚举顺序生成列表，并为每一项计算图标与链接。
func Build(title, dir string, entries []fsys.DirEntry) Listing {
	files := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		files = append(files, Entry{
			Name:  entry.Name,
			Icon:  Classify(entry.Name, entry.IsDir),
			Href:  link(dir, entry.Name),
			IsDir: entry.IsDir,
		})
	}
	return Listing{Title: title, Dir: dir, Files: files}
}

// link 拼接 dir + "/" + name，并逐段转义，保证含空格或 # 的文件名仍可访问。
func link(dir, name string) string {
	var b strings.Builder
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	b.WriteByte('/')
	b.WriteString(url.PathEscape(name))
	return b.String()
}

// Renderer 持有启动时解析好的模板，可被并发请求共享。
type Renderer struct {
	tpl *template.Template
}

// NewRenderer 解析内嵌模板。
func NewRenderer() (*Renderer, error) {
	tpl, err := template.ParseFS(templateFS, "templates/dir.html")
	if err != nil {
		return nil, fmt.Errorf("parse listing template: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Render 输出完整的 HTML 文档。返回的切片归调用方所有。
func (r *Renderer) Render(l Listing) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := r.tpl.Execute(buf, l); err != nil {
		return nil, fmt.Errorf("render listing %q: %w", l.Dir, err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}
