package events

import (
	"fmt"
	"sync"

	console "brandhub/internal/utils/logger"
)

var log = console.New("EVENTS")

const (
	// MembershipChanged fires whenever a user's role, permissions or brand
	// scope in some organization changes. Payload: MembershipChange.
	MembershipChanged = "membership.changed"
	// InvitationCreated fires after an invitation is stored. Payload: InvitationNotice.
	InvitationCreated = "invitation.created"
	// InvitationResolved fires when an invitation leaves the pending state.
	// Payload: InvitationNotice.
	InvitationResolved = "invitation.resolved"
	// BrandDeleted fires after a brand is removed. Payload: BrandRemoval.
	BrandDeleted = "brand.deleted"
)

type MembershipChange struct {
	OrganizationID string
	UserID         string
	Reason         string
}

type InvitationNotice struct {
	InvitationID   string
	OrganizationID string
	Email          string
	Status         string
}

type BrandRemoval struct {
	OrganizationID string
	BrandID        string
	LogoPath       string
}

type EventHandler func(interface{})

type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	inflight sync.WaitGroup
}

var defaultBus = NewEventBus()

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// Default returns the process-wide bus used by the package-level helpers.
func Default() *EventBus {
	return defaultBus
}

// On registers a handler for an event
func (bus *EventBus) On(event string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[event] = append(bus.handlers[event], handler)
	log.Debug("Registered handler for event: %s", event)
}

// Emit runs every handler for event on its own goroutine. A panicking
// handler is logged and does not affect the others.
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	handlers := append([]EventHandler(nil), bus.handlers[event]...)
	bus.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	log.Debug("Emitting event: %s", event)

	for _, handler := range handlers {
		bus.inflight.Add(1)
		go func(h EventHandler) {
			defer bus.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("Panic in %s handler", fmt.Errorf("panic: %v", r), event)
				}
			}()
			h(data)
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned.
func (bus *EventBus) Wait() {
	bus.inflight.Wait()
}

// On Global event functions that use the default event bus
func On(event string, handler EventHandler) {
	defaultBus.On(event, handler)
}

func Emit(event string, data interface{}) {
	defaultBus.Emit(event, data)
}
