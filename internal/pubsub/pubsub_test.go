package pubsub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventA EventType = iota
	testEventB
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	chA := bus.Subscribe(testEventA, 1)
	chB := bus.Subscribe(testEventB, 1)

	bus.Publish(Event{Type: testEventA, Payload: "hello"})

	ev := <-chA
	assert.Equal(t, "hello", ev.Payload)

	select {
	case <-chB:
		t.Fatal("event delivered to the wrong type's subscriber")
	default:
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ch1 := bus.Subscribe(testEventA, 1)
	ch2 := bus.Subscribe(testEventA, 1)

	bus.Publish(Event{Type: testEventA, Payload: 42})

	assert.Equal(t, 42, (<-ch1).Payload)
	assert.Equal(t, 42, (<-ch2).Payload)
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(testEventA, 1)

	bus.Publish(Event{Type: testEventA, Payload: 1})
	bus.Publish(Event{Type: testEventA, Payload: 2})

	require.Equal(t, uint64(1), bus.Dropped())
	assert.Equal(t, 1, (<-ch).Payload)
}

func TestBus_PublishWithoutSubscribersIsSafe(t *testing.T) {
	bus := NewBus()
	bus.Publish(Event{Type: testEventB, Payload: nil})
	assert.Equal(t, uint64(0), bus.Dropped())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(testEventA, 1024)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish(Event{Type: testEventA, Payload: i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, ch, 100)
}
