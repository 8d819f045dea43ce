package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rtsvc/internal/monitor"
)

var _ monitor.Sequencer = (*DeterministicClock)(nil)

func TestDeterministicClock(t *testing.T) {
	c := NewDeterministicClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())

	c.Reset()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	c := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(500), c.Current())
}

func TestFixedBootIDGenerator(t *testing.T) {
	var _ monitor.BootIDGenerator = NewFixedBootIDGenerator("")

	assert.Equal(t, DefaultBootID, NewFixedBootIDGenerator("").Generate())
	g := NewFixedBootIDGenerator("boot-7")
	assert.Equal(t, "boot-7", g.Generate())
	assert.Equal(t, "boot-7", g.Generate())
}
