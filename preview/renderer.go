// Package preview turns generated markup into an isolated browsing context and
// tracks its Loading/Ready/Failed lifecycle.
package preview

import (
	"context"
	"errors"
	"sync"
)

// SandboxPolicy lets the document run scripts but keeps it in an opaque origin,
// so it cannot reach the hosting page's cookies or DOM.
const SandboxPolicy = "allow-scripts allow-forms allow-modals allow-popups"

// ErrRenderFailed wraps every provisioning or readiness failure.
var ErrRenderFailed = errors.New("preview render failed")

// Frame describes the sandboxed iframe the page renders.
type Frame struct {
	SrcDoc  string
	Sandbox string
	Title   string
}

// Mount is one provisioned isolated context. Ready is closed when the context
// reports it has loaded.
type Mount struct {
	Frame Frame
	ready chan struct{}
}

// NewMount returns a Mount whose readiness is signalled by calling the
// returned function.
func NewMount(f Frame) (*Mount, func()) {
	m := &Mount{Frame: f, ready: make(chan struct{})}
	var once sync.Once
	return m, func() { once.Do(func() { close(m.ready) }) }
}

func (m *Mount) Ready() <-chan struct{} { return m.ready }

// Renderer provisions an isolated context for a markup string. Every call
// builds the context from scratch.
type Renderer interface {
	Mount(ctx context.Context, markup string) (*Mount, error)
}

// InlineRenderer assigns markup directly as the frame's inline document
// source. Assignment is synchronous, so the mount is ready immediately.
type InlineRenderer struct {
	Title string
}

func (r InlineRenderer) Mount(ctx context.Context, markup string) (*Mount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title := r.Title
	if title == "" {
		title = "Website Preview"
	}
	m, ready := NewMount(Frame{SrcDoc: markup, Sandbox: SandboxPolicy, Title: title})
	ready()
	return m, nil
}
