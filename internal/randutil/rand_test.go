package randutil

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(99)
	b := New(99)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestResolveSeed(t *testing.T) {
	clock := quartz.NewMock(t)
	clock.Set(time.Unix(1700000000, 0))

	assert.Equal(t, int64(5), ResolveSeed(5, clock))
	assert.Equal(t, time.Unix(1700000000, 0).UnixNano(), ResolveSeed(0, clock))
}

func TestDeriveStreamsDiffer(t *testing.T) {
	assert.NotEqual(t, Derive(1, 0), Derive(1, 1))
	assert.Equal(t, Derive(1, 2), Derive(1, 2))
	assert.NotEqual(t, Derive(1, 2), Derive(2, 2))
}
