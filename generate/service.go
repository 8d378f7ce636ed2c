package generate

import (
	"context"
	"errors"
	"sync"
	"time"

	"sitegen/gemini"
	"sitegen/interfaces"
	"sitegen/metrics"
)

const (
	// FallbackMarkup は上流が候補を返さなかったときに返すHTMLです。失敗扱いにはしません。
	FallbackMarkup = "<p>Failed to generate website.</p>"
	// SuccessMessage は成功時のメッセージです。
	SuccessMessage = "Website generated successfully! (via Gemini)"

	defaultTimeout = 30 * time.Second
	quotaWindow    = 24 * time.Hour
)

// Request は1回分の生成リクエストです。
type Request struct {
	Prompt string
	UserID string // 空の場合はクォータを適用しない
}

// Result は生成結果です。
type Result struct {
	GeneratedCode string `json:"generatedCode"`
	Message       string `json:"message"`
}

// Service はプロンプトの検証、上流呼び出し、結果とエラーの変換を担当します。
// リクエスト間で状態は持たず、結果のキャッシュもしません。
type Service struct {
	gen        interfaces.TextGenerator
	usage      interfaces.UsageStore
	metrics    *metrics.Collector
	log        interfaces.Logger
	timeout    time.Duration
	dailyQuota int
	now        func() time.Time

	// quotaMu は台帳の読み取りと枠の確保をまとめて行うためのロックです。
	quotaMu  sync.Mutex
	inflight map[string]int // ユーザーごとの上流呼び出し中の件数
}

// Option は Service の設定を変更します。
type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUsageStore は使用記録の保存先を設定します。quota が0より大きい場合は1日あたりの上限として使います。
func WithUsageStore(store interfaces.UsageStore, quota int) Option {
	return func(s *Service) {
		s.usage = store
		s.dailyQuota = quota
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService は Service を作成します。gen が nil の場合、APIキー未設定として全リクエストを MissingCredential で拒否します。
func NewService(gen interfaces.TextGenerator, log interfaces.Logger, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		log:     log,
		timeout:  defaultTimeout,
		now:      time.Now,
		inflight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available は上流の資格情報が設定されているかを返します。
func (s *Service) Available() bool { return s.gen != nil }

// Generate はプロンプトからHTMLを生成します。
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if s.gen == nil {
		s.log.Warn("gemini api key is not set")
		return nil, s.fail(req, 0, &Error{Kind: KindMissingCredential, Detail: MsgMissingCredential})
	}
	if err := ValidatePrompt(req.Prompt); err != nil {
		return nil, s.fail(req, 0, err)
	}
	release, err := s.reserve(ctx, req)
	if err != nil {
		return nil, err
	}
	// 成功の記録を書いてから枠を返す
	defer release()

	s.log.Info("calling generation backend", "backend", s.gen.Name(), "prompt_chars", len(req.Prompt), "user_id", req.UserID)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	text, err := s.gen.GenerateText(callCtx, BuildInstruction(req.Prompt))
	elapsed := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.UpstreamDuration.WithLabelValues(s.gen.Name()).Observe(elapsed.Seconds())
	}

	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrNoCandidates):
		s.log.Warn("generation backend returned no candidates, using fallback markup", "backend", s.gen.Name())
		text = FallbackMarkup
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		s.log.Error("generation backend timed out", "backend", s.gen.Name(), "timeout", s.timeout)
		return nil, s.fail(req, elapsed, &Error{Kind: KindUpstreamFailure, Detail: MsgUpstreamTimeout, Err: err})
	default:
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			// 上流のレスポンス本文はサーバーログにだけ残す
			s.log.Error("generation backend returned an error", "status", apiErr.StatusCode, "body", apiErr.Body)
		} else {
			s.log.Error("generation backend call failed", "error", err)
		}
		return nil, s.fail(req, elapsed, &Error{Kind: KindUpstreamFailure, Detail: MsgUpstreamFailure, Err: err})
	}

	s.record(req, interfaces.OutcomeSuccess, elapsed)
	s.log.Info("website generated", "markup_chars", len(text), "duration", elapsed)
	return &Result{GeneratedCode: text, Message: SuccessMessage}, nil
}

// reserve はクォータの枠を1つ確保し、解放用の関数を返します。
// 台帳の成功件数と呼び出し中の件数の合計が上限に達していれば QuotaExceeded を返します。
func (s *Service) reserve(ctx context.Context, req Request) (func(), error) {
	if s.usage == nil || s.dailyQuota <= 0 || req.UserID == "" {
		return func() {}, nil
	}

	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()

	n, err := s.usage.CountGenerationsSince(ctx, req.UserID, s.now().Add(-quotaWindow))
	if err != nil {
		// 台帳が読めなくても生成は止めない
		s.log.Error("failed to read usage ledger", "error", err)
		n = 0
	}
	pending := s.inflight[req.UserID]
	if n+pending >= s.dailyQuota {
		s.log.Warn("daily generation quota reached", "user_id", req.UserID, "count", n, "in_flight", pending, "quota", s.dailyQuota)
		return nil, s.fail(req, 0, &Error{Kind: KindQuotaExceeded, Detail: MsgQuotaExceeded})
	}
	s.inflight[req.UserID]++

	var once sync.Once
	return func() {
		once.Do(func() {
			s.quotaMu.Lock()
			defer s.quotaMu.Unlock()
			s.inflight[req.UserID]--
			if s.inflight[req.UserID] <= 0 {
				delete(s.inflight, req.UserID)
			}
		})
	}, nil
}

// Used は直近24時間の生成回数を返します。台帳が無い場合は0です。
func (s *Service) Used(ctx context.Context, userID string) (int, error) {
	if s.usage == nil || userID == "" {
		return 0, nil
	}
	return s.usage.CountGenerationsSince(ctx, userID, s.now().Add(-quotaWindow))
}

// Quota は1日あたりの上限を返します。0は無制限。
func (s *Service) Quota() int { return s.dailyQuota }

func (s *Service) fail(req Request, elapsed time.Duration, err error) error {
	kind := KindOf(err)
	// 入力不備やクォータ超過は上流を呼んでいないので台帳に残さない
	if kind == KindUpstreamFailure {
		s.record(req, kind.String(), elapsed)
	} else if s.metrics != nil {
		s.metrics.GenerationsTotal.WithLabelValues(kind.String()).Inc()
	}
	return err
}

func (s *Service) record(req Request, outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.GenerationsTotal.WithLabelValues(outcome).Inc()
	}
	if s.usage == nil || req.UserID == "" {
		return
	}
	rec := interfaces.UsageRecord{
		UserID:      req.UserID,
		Outcome:     outcome,
		PromptChars: len(req.Prompt),
		Duration:    elapsed,
		CreatedAt:   s.now(),
	}
	// リクエストがキャンセルされても記録は残したいので Background を使う
	if err := s.usage.RecordGeneration(context.Background(), rec); err != nil {
		s.log.Error("failed to record generation usage", "error", err)
	}
}
