package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log 全局日志器，未调用 InitLogger 前使用默认配置
var Log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// InitLogger 初始化日志器
func InitLogger(level, format string) {
	Log = newDefault()

	// 设置输出格式
	if format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	Log.SetLevel(ParseLevel(level))
}

// ParseLevel 解析日志级别，未知级别回落到 info
func ParseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithMethod 返回带有评分方法标识的日志条目
func WithMethod(name string) *logrus.Entry {
	return Log.WithField("method", name)
}

// WithFields 返回带有多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

// Debug 调试日志
func Debug(args ...interface{}) {
	Log.Debug(args...)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	Log.Debugf(format, args...)
}

// Info 信息日志
func Info(args ...interface{}) {
	Log.Info(args...)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	Log.Infof(format, args...)
}

// Warn 警告日志
func Warn(args ...interface{}) {
	Log.Warn(args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	Log.Warnf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}

// Fatalf 格式化致命错误日志
func Fatalf(format string, args ...interface{}) {
	Log.Fatalf(format, args...)
}
