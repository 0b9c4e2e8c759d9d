package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// Provider defines the interface for all notification providers
type Provider interface {
	// Name returns the unique identifier for this provider
	Name() string

	// Send delivers a message to one channel
	Send(ctx context.Context, channel *models.Channel, message *Message) error
}

// Message represents an alert about one check
type Message struct {
	Title     string
	Body      string
	CheckName string
	CheckCode string
	Status    string // "up" or "down"
	Time      string
}

// Registry holds all registered notification providers
var (
	providers = make(map[string]Provider)
	mu        sync.RWMutex
)

// RegisterProvider registers a new notification provider
func RegisterProvider(provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func GetProvider(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	provider, ok := providers[name]
	return provider, ok
}

// FormatMessage renders the plain-text body used by email and webhooks.
func FormatMessage(m *Message) string {
	name := m.CheckName
	if name == "" {
		name = m.CheckCode
	}
	return fmt.Sprintf("%s\n\nCheck: %s\nStatus: %s\nTime: %s\n", m.Body, name, m.Status, m.Time)
}
