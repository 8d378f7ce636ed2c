package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// シングルトンとしてロガーを保持
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Options はロガーの出力先とレベルを指定します。
type Options struct {
	File  string // 空の場合はファイルに出力しない
	Level string
}

// Init はグローバルロガーを初期化して返します。
func Init(opts Options) *slog.Logger {
	var w io.Writer = os.Stdout
	if opts.File != "" {
		// ログローテーションの設定
		logFile := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // 1ファイルあたりの最大サイズ (MB)
			MaxBackups: 5,
			MaxAge:     30, // 日数
			Compress:   true,
		}
		// コンソールとファイルの両方に出力
		w = io.MultiWriter(os.Stdout, logFile)
	}

	logger = New(w, opts.Level)
	slog.SetDefault(logger)
	return logger
}

// New は指定したWriterに書き込むJSONロガーを作成します。
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     ParseLevel(level),
	}))
}

// ParseLevel は設定ファイルのレベル文字列を slog.Level に変換します。不明な値は INFO 扱い。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard は何も出力しないロガーです。テストやCLIの静音モードで使います。
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Fatalレベルのログを出力（出力後にプログラムを終了）
func Fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
