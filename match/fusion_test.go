package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlpha(t *testing.T) {
	assert.Equal(t, 1.0, Alpha(0, 0.3, 1000))
	assert.InDelta(t, 0.9, Alpha(100, 0.3, 1000), 1e-12)
	assert.InDelta(t, 0.3, Alpha(700, 0.3, 1000), 1e-12)
	assert.Equal(t, 0.3, Alpha(5000, 0.3, 1000))
	assert.Equal(t, 1.0, Alpha(-5, 0.3, 1000))

	prev := Alpha(0, 0.3, 1000)
	for n := 1; n <= 3000; n += 7 {
		a := Alpha(n, 0.3, 1000)
		assert.LessOrEqual(t, a, prev, "alpha grew at population %d", n)
		assert.GreaterOrEqual(t, a, 0.3)
		assert.LessOrEqual(t, a, 1.0)
		prev = a
	}
}

func TestFuse(t *testing.T) {
	assert.InDelta(t, 0.5*8+0.5*(20.0/10), Fuse(0.5, 8, 20, 10), 1e-12)
	assert.Equal(t, 8.0, Fuse(1, 8, 20, 10))
	assert.InDelta(t, 0.3*8, Fuse(0.3, 8, 0, 10), 1e-12)
}
