package waiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestLatch(t *testing.T) {
	n := neko.Modern(t)

	n.It("keeps the first value", func(t *testing.T) {
		var l Latch[int]

		require.True(t, l.Fire(7))
		require.False(t, l.Fire(9))

		require.Equal(t, 7, l.Wait())
	})

	n.It("releases a blocked waiter", func(t *testing.T) {
		var l Latch[string]

		got := make(chan string, 1)

		go func() {
			got <- l.Wait()
		}()

		select {
		case <-got:
			t.Fatal("waiter returned before fire")
		case <-time.After(50 * time.Millisecond):
		}

		l.Fire("loaded")

		select {
		case v := <-got:
			require.Equal(t, "loaded", v)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never woke")
		}
	})

	n.It("does not block when already fired", func(t *testing.T) {
		var l Latch[int]

		_, ok := l.Peek()
		require.False(t, ok)

		l.Fire(3)

		<-l.Done()

		v, ok := l.Peek()
		require.True(t, ok)
		require.Equal(t, 3, v)
	})

	n.Meow()
}
