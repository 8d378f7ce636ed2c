package generate

import (
	"errors"
	"net/http"
)

// Kind は生成エラーの種類です。
type Kind int

const (
	KindUnknown Kind = iota
	KindMethodNotAllowed
	KindInvalidPrompt
	KindMissingCredential
	KindUpstreamFailure
	KindQuotaExceeded
)

func (k Kind) String() string {
	switch k {
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindInvalidPrompt:
		return "invalid_prompt"
	case KindMissingCredential:
		return "missing_credential"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Status はエラーの種類に対応するHTTPステータスです。
func (k Kind) Status() int {
	switch k {
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindInvalidPrompt:
		return http.StatusBadRequest
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error は呼び出し元に返す生成エラーです。Detail はそのままユーザーに表示してよい文言で、
// 上流のレスポンス本文などの内部情報は Err 側にだけ持たせます。
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Detail + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Status はHTTPステータスを返します。
func (e *Error) Status() int { return e.Kind.Status() }

// KindOf は err に含まれる *Error の種類を返します。
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// ユーザー向けの定型メッセージ
const (
	MsgMethodNotAllowed  = "Method not allowed"
	MsgInvalidPrompt     = "Invalid prompt"
	MsgMissingCredential = "Gemini API key not set. Please add GEMINI_API_KEY to your environment or config.yaml."
	MsgUpstreamFailure   = "Failed to generate website"
	MsgUpstreamTimeout   = "Failed to generate website: the generation backend timed out"
	MsgQuotaExceeded     = "Daily generation limit reached"
)
