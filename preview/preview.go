package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitegen/interfaces"
	"sitegen/metrics"
)

const defaultReadyTimeout = 5 * time.Second

// Phase is the preview lifecycle phase.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "loading"
	}
}

// State is the outcome of one load. Frame is nil unless Phase is Ready.
// Err wraps ErrRenderFailed when Phase is Failed.
type State struct {
	Phase       Phase
	ErrorDetail string
	Err         error
	Frame       *Frame
}

// Preview loads markup into a freshly mounted isolated context for every call.
// It keeps no state between loads; callers that can race decide which result
// to show.
type Preview struct {
	renderer Renderer
	timeout  time.Duration
	log      interfaces.Logger
	metrics  *metrics.Collector
}

type Option func(*Preview)

func WithReadyTimeout(d time.Duration) Option {
	return func(p *Preview) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Preview) { p.metrics = m }
}

func New(r Renderer, log interfaces.Logger, opts ...Option) *Preview {
	p := &Preview{
		renderer: r,
		timeout:  defaultReadyTimeout,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load mounts markup and waits for the mount to report ready, bounded by the
// ready timeout.
func (p *Preview) Load(ctx context.Context, markup string) State {
	p.log.Debug("preview loading", "markup_chars", len(markup))

	st := p.mount(ctx, markup)

	if st.Phase == PhaseFailed {
		p.log.Warn("preview failed", "detail", st.ErrorDetail)
	} else {
		p.log.Debug("preview ready")
	}
	if p.metrics != nil {
		p.metrics.PreviewsTotal.WithLabelValues(st.Phase.String()).Inc()
	}
	return st
}

func (p *Preview) mount(ctx context.Context, markup string) State {
	if markup == "" {
		return failed(errors.New("nothing to render"))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	m, err := p.renderer.Mount(ctx, markup)
	if err != nil {
		return failed(err)
	}

	select {
	case <-m.Ready():
		f := m.Frame
		return State{Phase: PhaseReady, Frame: &f}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return failed(fmt.Errorf("preview did not become ready within %s", p.timeout))
		}
		return failed(ctx.Err())
	}
}

func failed(err error) State {
	err = fmt.Errorf("%w: %w", ErrRenderFailed, err)
	return State{Phase: PhaseFailed, ErrorDetail: err.Error(), Err: err}
}
