package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunParallelKeepsOrder(t *testing.T) {
	boom := errors.New("boom")
	errs := RunParallel(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(context.Context) error { return nil },
	)
	assert.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.Equal(t, boom, errs[1])
	assert.Equal(t, boom, FirstError(errs))
	assert.NoError(t, FirstError(errs[:1]))
}

func TestWorkerPoolDrainsOnClose(t *testing.T) {
	pool := NewWorkerPool(3)
	var n int64
	for i := 0; i < 50; i++ {
		assert.True(t, pool.Submit(func() { atomic.AddInt64(&n, 1) }))
	}
	pool.Close()
	assert.Equal(t, int64(50), atomic.LoadInt64(&n))

	assert.False(t, pool.Submit(func() {}))
	pool.Close()
}
