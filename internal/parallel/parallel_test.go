package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := HeavyConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 4

	var counter int64
	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(1000), counter)
	for i, v := range seen {
		assert.Equal(t, int32(1), v, "item %d", i)
	}
}

func TestForBatch(t *testing.T) {
	cfg := HeavyConfig()

	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForBatch(batch, channels, func(b, c int) {
		results[b][c] = true
	}, cfg)

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			assert.True(t, results[b][c], "missing result at [%d][%d]", b, c)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	order := make([]int, 0, 100)
	For(100, func(i int) {
		order = append(order, i)
	}, Sequential())

	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Len(t, order, 100)
}

func TestFor_Empty(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}

func TestFor_PanicReachesCaller(t *testing.T) {
	cfg := HeavyConfig()
	cfg.Enabled = true
	cfg.NumWorkers = 4

	var done int64
	assert.PanicsWithValue(t, "item 7", func() {
		For(64, func(i int) {
			if i == 7 {
				panic("item 7")
			}
			atomic.AddInt64(&done, 1)
		}, cfg)
	})
	assert.Positive(t, atomic.LoadInt64(&done))

	// Sequential execution panics the same way.
	assert.PanicsWithValue(t, "item 0", func() {
		For(1, func(int) { panic("item 0") }, Sequential())
	})
}
