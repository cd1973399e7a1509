package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadLimitConcurrentSet(t *testing.T) {
	l := NewUploadLimit(1 << 20)
	assert.Equal(t, int64(1<<20), l.Bytes())

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(2)
		go func(n int64) {
			defer wg.Done()
			l.Set(n << 20)
		}(int64(i))
		go func() {
			defer wg.Done()
			assert.Positive(t, l.Bytes())
		}()
	}
	wg.Wait()

	l.Set(0)
	assert.Zero(t, l.Bytes())
}
