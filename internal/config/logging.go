package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger 构建进程日志：文本输出到 stderr，设置 cfg.File 时额外写入 JSON。
// 返回的清理函数负责关闭文件。
func SetupLogger(cfg LogConfig) (*slog.Logger, func() error) {
	return SetupLoggerTo(os.Stderr, cfg)
}

// SetupLoggerTo 与 SetupLogger 相同，但文本输出写到 text，
// 例如全屏界面占用终端时传入 io.Discard。
func SetupLoggerTo(text io.Writer, cfg LogConfig) (*slog.Logger, func() error) {
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: cfg.Level})
	noop := func() error { return nil }

	if cfg.File == "" {
		return slog.New(textHandler), noop
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(textHandler)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", cfg.File)
		return logger, noop
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: cfg.Level})
	return slog.New(slogmulti.Fanout(textHandler, fileHandler)), file.Close
}

// SetupLoggerWithWriters 在任意 writer 之上创建扇出日志。
func SetupLoggerWithWriters(text, json io.Writer, level slog.Level) *slog.Logger {
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: level})
	jsonHandler := slog.NewJSONHandler(json, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(textHandler, jsonHandler))
}
