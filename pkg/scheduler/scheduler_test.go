package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls int32
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	atomic.AddInt32(&p.calls, 1)
	return 1, nil
}

func TestSchedulePurgeRunsImmediately(t *testing.T) {
	s := New()
	p := &countingPurger{}
	require.NoError(t, s.SchedulePurge("verification-codes", time.Hour, p))
	assert.Equal(t, 1, s.Jobs())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.calls) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}
