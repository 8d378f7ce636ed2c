// Package workspace holds the per-user view state of the generation page.
// Nothing here is persisted; a restart drops every workspace.
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"sitegen/generate"
	"sitegen/preview"
)

// Phase is the page phase for one user.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Snapshot is a copy of a workspace safe to hand to a template.
type Snapshot struct {
	Phase       Phase
	Token       uint64
	Prompt      string
	Result      *generate.Result
	ErrorDetail string
	Preview     *preview.State
}

// Workspace is the state machine Idle → Submitting → {Succeeded, Failed}.
// Every Begin and Reset bumps the token; completions carrying an older token
// are discarded.
type Workspace struct {
	mu       sync.Mutex
	token    uint64
	phase    Phase
	prompt   string
	result   *generate.Result
	errMsg   string
	preview  *preview.State
	lastSeen time.Time
}

func New() *Workspace {
	return &Workspace{lastSeen: time.Now()}
}

// Begin starts a submission. A blank prompt is rejected and the state is left alone.
func (w *Workspace) Begin(prompt string) (uint64, error) {
	if err := generate.ValidatePrompt(prompt); err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.token++
	w.phase = PhaseSubmitting
	w.prompt = prompt
	w.result = nil
	w.errMsg = ""
	w.preview = nil
	w.lastSeen = time.Now()
	return w.token, nil
}

// Succeed applies a result if token is still the latest submission.
func (w *Workspace) Succeed(token uint64, res *generate.Result, pv *preview.State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.token || w.phase != PhaseSubmitting {
		return false
	}
	w.phase = PhaseSucceeded
	w.result = res
	w.preview = pv
	w.lastSeen = time.Now()
	return true
}

// Fail records an error if token is still the latest submission. The previous
// result was already cleared by Begin.
func (w *Workspace) Fail(token uint64, detail string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.token || w.phase != PhaseSubmitting {
		return false
	}
	w.phase = PhaseFailed
	w.errMsg = detail
	w.lastSeen = time.Now()
	return true
}

// Reset is the "generate new" action.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.token++
	w.phase = PhaseIdle
	w.prompt = ""
	w.result = nil
	w.errMsg = ""
	w.preview = nil
	w.lastSeen = time.Now()
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = time.Now()
	return Snapshot{
		Phase:       w.phase,
		Token:       w.token,
		Prompt:      w.prompt,
		Result:      w.result,
		ErrorDetail: w.errMsg,
		Preview:     w.preview,
	}
}

func (w *Workspace) idleSince() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen, w.phase == PhaseSubmitting
}

// Generator is the part of generate.Service the page needs.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Result, error)
}

// RenderFunc turns markup into a preview state.
type RenderFunc func(ctx context.Context, markup string) preview.State

// Submit runs one round trip for the page: Begin, generate, render the
// preview, then apply the outcome under the submission token. It returns the
// token and whether the outcome was applied.
func Submit(ctx context.Context, w *Workspace, gen Generator, render RenderFunc, userID, prompt string) (uint64, bool, error) {
	token, err := w.Begin(prompt)
	if err != nil {
		return 0, false, err
	}

	res, err := gen.Generate(ctx, generate.Request{Prompt: prompt, UserID: userID})
	if err != nil {
		detail := generate.MsgUpstreamFailure
		var ge *generate.Error
		if errors.As(err, &ge) {
			detail = ge.Detail
		}
		return token, w.Fail(token, detail), err
	}

	pv := render(ctx, res.GeneratedCode)
	return token, w.Succeed(token, res, &pv), nil
}
