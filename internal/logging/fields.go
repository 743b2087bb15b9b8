package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供路径/方法/状态等字段，供文件服务请求日志复用。
func RequestFields(requestID, method, path string, status int, outcome string) logrus.Fields {
	fields := logrus.Fields{
		"action":  "serve",
		"method":  method,
		"path":    path,
		"status":  status,
		"outcome": outcome,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
