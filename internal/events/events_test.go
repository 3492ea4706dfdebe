package events

import (
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/jaki95/djtrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()

	var received []Kind
	bus.AddListener(func(event Event) {
		received = append(received, event.Kind)
	})

	bus.Publish(
		NewEvent(KindDirty, 1, nil),
		NewEvent(KindChanged, 1, nil),
	)
	bus.Publish()

	assert.Equal(t, []Kind{KindDirty, KindChanged}, received)
}

func TestListenerManagement(t *testing.T) {
	bus := NewBus()

	var first, second int
	id := bus.AddListener(func(Event) { first++ })
	bus.AddListener(func(Event) { second++ })
	assert.Equal(t, 2, bus.Len())

	bus.Publish(NewEvent(KindTitleChanged, 0, "title"))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)

	bus.RemoveListener(id)
	bus.RemoveListener(id)
	assert.Equal(t, 1, bus.Len())

	bus.Publish(NewEvent(KindTitleChanged, 0, "title"))
	assert.Equal(t, 1, first, "removed listener is not called")
	assert.Equal(t, 2, second)
}

func TestListenerMayModifyBus(t *testing.T) {
	bus := NewBus()

	var id ListenerID
	calls := 0
	id = bus.AddListener(func(Event) {
		calls++
		bus.RemoveListener(id)
		bus.AddListener(func(Event) {})
	})

	bus.Publish(NewEvent(KindCuesUpdated, 3, nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.Len())
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.AddListener(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewEvent(KindChanged, 1, nil))
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, count)
}

func TestEventJSON(t *testing.T) {
	event := NewEvent(KindBpmChanged, domain.TrackID(7), 128.0)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var unmarshaled Event
	require.NoError(t, json.Unmarshal(data, &unmarshaled))

	assert.Equal(t, event.Kind, unmarshaled.Kind)
	assert.Equal(t, event.TrackID, unmarshaled.TrackID)
	assert.Equal(t, 128.0, unmarshaled.Value)
	assert.True(t, event.Timestamp.Equal(unmarshaled.Timestamp))
}
