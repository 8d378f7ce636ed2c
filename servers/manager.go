package servers

import (
	"fmt"

	"sitegen/interfaces"
)

// Manager holds and manages all the servers.
type Manager struct {
	servers []Server
	started []Server
	log     interfaces.Logger
}

// NewManager creates a new server manager.
func NewManager(log interfaces.Logger) *Manager {
	return &Manager{log: log}
}

// AddServer adds a new server to the manager.
func (m *Manager) AddServer(server Server) {
	m.servers = append(m.servers, server)
}

// StartAll starts all registered servers in order. If one fails, the ones
// already running are stopped again.
func (m *Manager) StartAll() error {
	for _, s := range m.servers {
		m.log.Info("Starting server", "name", s.Name())
		if err := s.Start(); err != nil {
			m.StopAll()
			return fmt.Errorf("starting %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		m.log.Info("Server started successfully", "name", s.Name())
	}
	return nil
}

// StopAll stops the running servers in reverse start order.
func (m *Manager) StopAll() {
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		m.log.Info("Stopping server", "name", s.Name())
		if err := s.Stop(); err != nil {
			m.log.Error("Failed to stop server", "name", s.Name(), "error", err)
			continue
		}
		m.log.Info("Server stopped successfully", "name", s.Name())
	}
	m.started = nil
}
