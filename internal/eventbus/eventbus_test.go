package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(4)
	defer unsubscribe()

	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(Event{Type: EventJobStarted, JobID: "job-1"})

	select {
	case ev := <-ch:
		assert.Equal(t, EventJobStarted, ev.Type)
		assert.Equal(t, "job-1", ev.JobID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(1)
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	b := New()
	ch, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: EventJobProgress, CompletedTasks: i})
	}

	require.Len(t, ch, 1)
}

func TestBusFanOut(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe(2)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(2)
	defer unsub2()

	b.Publish(Event{Type: EventJobCompleted, JobID: "job-2"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, "job-2", ev.JobID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out event")
		}
	}
}
