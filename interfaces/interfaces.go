package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrNoCandidates は上流のモデルが候補テキストを1件も返さなかったことを表します。
var ErrNoCandidates = errors.New("upstream returned no candidates")

// Logger は、アプリケーション全体で使用されるロガーのインターフェースを定義します。
// *slog.Logger はそのままこのインターフェースを満たします。
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TextGenerator は、指示文からテキストを生成する上流バックエンドのインターフェースです。
// 候補が無い場合は ErrNoCandidates を返します。
type TextGenerator interface {
	GenerateText(ctx context.Context, instruction string) (string, error)
	Name() string
}

// OutcomeSuccess は成功した生成の Outcome です。クォータはこの件数だけを数えます。
const OutcomeSuccess = "success"

// UsageRecord は1回の生成の記録です。プロンプトや生成結果そのものは含みません。
type UsageRecord struct {
	UserID      string
	Outcome     string
	PromptChars int
	Duration    time.Duration
	CreatedAt   time.Time
}

// UsageStore は、生成回数の記録とクォータ判定に使うストレージのインターフェースです。
type UsageStore interface {
	RecordGeneration(ctx context.Context, rec UsageRecord) error
	// CountGenerationsSince は成功した生成だけを数えます。
	CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error)
	PruneUsageBefore(ctx context.Context, before time.Time) (int64, error)
	PingDB() error
	Close()
}
