package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversInOrder(t *testing.T) {
	b := New()
	defer b.Close()

	var mu sync.Mutex
	var got []int

	b.Subscribe(CheckStarted, func(env Envelope) {
		p := env.Payload.(CheckStartedPayload)
		mu.Lock()
		got = append(got, p.Iteration)
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		b.Publish(CheckStarted, CheckStartedPayload{CheckID: "a", Iteration: i})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 20
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestUnsubscribe_IsIdempotentAndStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	var count int
	var mu sync.Mutex
	sub := b.Subscribe(CheckScheduled, func(env Envelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(CheckScheduled, CheckScheduledPayload{CheckID: "a"})
	time.Sleep(10 * time.Millisecond)

	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // idempotent

	b.Publish(CheckScheduled, CheckScheduledPayload{CheckID: "b"})
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestPanickingHandler_DoesNotBlockOthers(t *testing.T) {
	b := New()
	defer b.Close()

	var mu sync.Mutex
	var secondCalled bool

	b.Subscribe(CheckErrored, func(env Envelope) {
		panic("boom")
	})
	b.Subscribe(CheckErrored, func(env Envelope) {
		mu.Lock()
		secondCalled = true
		mu.Unlock()
	})

	b.Publish(CheckErrored, CheckErroredPayload{CheckID: "a"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return secondCalled
	}, time.Second, time.Millisecond)
}

func TestTopicsAreIndependent(t *testing.T) {
	b := New()
	defer b.Close()

	var aCount, bCount int
	var mu sync.Mutex
	b.Subscribe(CheckScheduled, func(env Envelope) { mu.Lock(); aCount++; mu.Unlock() })
	b.Subscribe(Shutdown, func(env Envelope) { mu.Lock(); bCount++; mu.Unlock() })

	b.Publish(CheckScheduled, CheckScheduledPayload{CheckID: "x"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return aCount == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, bCount)
}
