package listing

import (
	"path/filepath"
	"strings"

	"github.com/gofiber/utils/v2"
)

// 图标键，由模板映射为具体的样式。
const (
	IconFolder  = "folder"
	IconImage   = "image"
	IconVideo   = "video"
	IconAudio   = "audio"
	IconText    = "text"
	IconCode    = "code"
	IconArchive = "archive"
	IconPDF     = "pdf"
	IconFile    = "file"
)

var extensionIcons = map[string]string{
	".go":   IconCode,
	".js":   IconCode,
	".mjs":  IconCode,
	".ts":   IconCode,
	".css":  IconCode,
	".html": IconCode,
	".htm":  IconCode,
	".json": IconCode,
	".xml":  IconCode,
	".yaml": IconCode,
	".yml":  IconCode,
	".toml": IconCode,
	".sh":   IconCode,
	".py":   IconCode,
	".java": IconCode,
	".c":    IconCode,
	".h":    IconCode,
	".cpp":  IconCode,
	".rs":   IconCode,
	".zip":  IconArchive,
	".tar":  IconArchive,
	".gz":   IconArchive,
	".tgz":  IconArchive,
	".bz2":  IconArchive,
	".xz":   IconArchive,
	".7z":   IconArchive,
	".rar":  IconArchive,
	".pdf":  IconPDF,
	".txt":  IconText,
	".md":   IconText,
	".log":  IconText,
	".csv":  IconText,
}

var mimeIcons = []struct {
	prefix string
	icon   string
}{
	{"image/", IconImage},
	{"video/", IconVideo},
	{"audio/", IconAudio},
	{"text/", IconText},
}

// Classify 返回条目的图标键，结果永远非空。
func Classify(name string, isDir bool) string {
	if isDir {
		return IconFolder
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return IconFile
	}
	if icon, ok := extensionIcons[ext]; ok {
		return icon
	}
	mime := utils.GetMIME(ext)
	for _, candidate := range mimeIcons {
		if strings.HasPrefix(mime, candidate.prefix) {
			return candidate.icon
		}
	}
	return IconFile
}
