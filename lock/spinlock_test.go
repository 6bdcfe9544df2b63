package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKinds(t *testing.T) {
	assert.IsType(t, &sync.Mutex{}, New(KindMutex))
	assert.IsType(t, &sync.Mutex{}, New("unknown"))
	assert.IsType(t, &spinLock{}, New(KindSpin))
}

func TestSpinLockExclusive(t *testing.T) {
	for _, kind := range []string{KindMutex, KindSpin} {
		t.Run(kind, func(t *testing.T) {
			l := New(kind)
			counter := 0
			wg := sync.WaitGroup{}
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 1000; j++ {
						l.Lock()
						counter++
						l.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 8000, counter)
		})
	}
}

func TestSpinTryLock(t *testing.T) {
	l := new(spinLock)
	assert.True(t, l.TryLock())
	assert.False(t, l.TryLock())
	l.Unlock()
	assert.True(t, l.TryLock())
	l.Unlock()
	assert.Panics(t, func() { l.Unlock() })
}
