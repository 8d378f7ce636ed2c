// servers/web_server.go
package servers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"sitegen/interfaces"
)

const shutdownTimeout = 5 * time.Second

// WebServer はHTTPサーバーを管理します。
type WebServer struct {
	log  interfaces.Logger
	http *http.Server
	addr net.Addr
	done chan struct{}
}

// NewWebServer は新しいWebServerインスタンスを作成します。
func NewWebServer(addr string, handler http.Handler, log interfaces.Logger) *WebServer {
	return &WebServer{
		log: log,
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *WebServer) Name() string { return "web" }

// Start はポートを確保してからバックグラウンドで待ち受けを開始します。
func (s *WebServer) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	s.addr = ln.Addr()
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.log.Info("web server listening", "addr", s.addr.String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("web server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr は実際に待ち受けているアドレスです。Start 前は nil。
func (s *WebServer) Addr() net.Addr { return s.addr }

// Stop は処理中のリクエストを待ってからサーバーを閉じます。
func (s *WebServer) Stop() error {
	if s.done == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(ctx)
	<-s.done
	return err
}
