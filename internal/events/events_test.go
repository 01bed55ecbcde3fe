package events

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitRunsEveryHandler(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	var got atomic.Value

	bus.On(MembershipChanged, func(data interface{}) {
		calls.Add(1)
		got.Store(data.(MembershipChange).UserID)
	})
	bus.On(MembershipChanged, func(interface{}) { calls.Add(1) })

	bus.Emit(MembershipChanged, MembershipChange{OrganizationID: "o1", UserID: "u1"})
	bus.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "u1", got.Load())
}

func TestEmitSurvivesPanickingHandler(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32

	bus.On(BrandDeleted, func(interface{}) { panic("boom") })
	bus.On(BrandDeleted, func(interface{}) { calls.Add(1) })

	bus.Emit(BrandDeleted, BrandRemoval{BrandID: "b1"})
	bus.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestEmitWithoutHandlers(t *testing.T) {
	bus := NewEventBus()
	bus.Emit("nothing.listens", nil)
	bus.Wait()
}
