package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	k := newKeyedLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, k.size())
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	k := newKeyedLocker()
	unlockA := k.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
	assert.Equal(t, 0, k.size())
}
