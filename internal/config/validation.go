package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，并编译压缩规则，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	s := &c.Server
	if s.Port <= 0 || s.Port > 65535 {
		return newFieldError("Port", "必须在 1-65535")
	}
	if err := validateRoot(s.Root); err != nil {
		return err
	}
	if s.CompressMinSize < 0 {
		return newFieldError("CompressMinSize", "不能为负数")
	}

	pattern, err := regexp.Compile(s.Compress)
	if err != nil {
		return newFieldError("Compress", fmt.Sprintf("无法编译正则: %v", err))
	}
	s.compressPattern = pattern

	if c.Cache.MaxAge.DurationValue() < 0 {
		return newFieldError("CacheMaxAge", "不能为负数")
	}

	if _, err := logrus.ParseLevel(c.Log.LogLevel); err != nil {
		return newFieldError("LogLevel", fmt.Sprintf("无法识别: %s", c.Log.LogLevel))
	}
	if c.Log.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if c.Log.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}

	return nil
}

func validateRoot(root string) error {
	if root == "" {
		return newFieldError("Root", "不能为空")
	}
	info, err := os.Stat(root)
	if err != nil {
		return newFieldError("Root", fmt.Sprintf("无法访问: %v", err))
	}
	if !info.IsDir() {
		return newFieldError("Root", "必须是目录")
	}
	return nil
}
