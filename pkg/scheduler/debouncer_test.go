package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var runs int32
	d := NewDebouncer(30*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	for i := 0; i < 10; i++ {
		d.Schedule()
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return atomic.LoadInt32(&runs) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.False(t, d.Pending())
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	var runs int32
	d := NewDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&runs, 1) })

	d.Schedule()
	d.Cancel()
	assert.Never(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, 80*time.Millisecond, 10*time.Millisecond)

	d.Schedule()
	d.Stop()
	d.Schedule()
	assert.Never(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, 80*time.Millisecond, 10*time.Millisecond)
	assert.False(t, d.Pending())
}

func TestDebouncer_Flush(t *testing.T) {
	var runs int32
	d := NewDebouncer(time.Hour, func() { atomic.AddInt32(&runs, 1) })

	assert.False(t, d.Flush())
	d.Schedule()
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.False(t, d.Pending())
}
