package gameserver

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserLocks_SerialisesSameUser(t *testing.T) {
	l := newUserLocks()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock(7)
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, l.size())
}

func TestUserLocks_DifferentUsersDoNotBlock(t *testing.T) {
	l := newUserLocks()
	unlockA := l.lock(1)
	unlockB := l.lock(2)
	assert.Equal(t, 2, l.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, l.size())
}
