package servers

// Server は Manager が起動・停止を管理するコンポーネントです。
// Start はブロックせずに戻る必要があります。
type Server interface {
	Start() error
	Stop() error
	Name() string
}
