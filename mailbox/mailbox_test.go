package mailbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMailbox(t *testing.T) {
	t.Run("With FIFO delivery", func(t *testing.T) {
		m := New[int](0)
		for i := 0; i < 10; i++ {
			require.NoError(t, m.Send(i))
		}
		for i := 0; i < 10; i++ {
			item, err := m.Recv()
			require.NoError(t, err)
			assert.Equal(t, i, item)
		}
	})

	t.Run("With blocking receivers woken by senders", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		m := New[int](0)
		var wg sync.WaitGroup
		got := make([]int, 3)
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				item, err := m.Recv()
				require.NoError(t, err)
				got[i] = item
			}(i)
		}
		for i := 1; i <= 3; i++ {
			require.NoError(t, m.Send(i))
		}
		wg.Wait()
		assert.ElementsMatch(t, []int{1, 2, 3}, got)
	})

	t.Run("With close draining queued items first", func(t *testing.T) {
		m := New[int](0)
		require.NoError(t, m.Send(1))
		require.NoError(t, m.Send(2))
		m.Close()

		require.Error(t, m.Send(3))

		item, err := m.Recv()
		require.NoError(t, err)
		assert.Equal(t, 1, item)
		item, err = m.Recv()
		require.NoError(t, err)
		assert.Equal(t, 2, item)
		_, err = m.Recv()
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("With close waking blocked receivers", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		m := New[int](0)
		errCh := make(chan error, 1)
		go func() {
			_, err := m.Recv()
			errCh <- err
		}()
		time.Sleep(50 * time.Millisecond)
		m.Close()
		assert.ErrorIs(t, <-errCh, ErrClosed)
	})

	t.Run("With a bounded mailbox timing out", func(t *testing.T) {
		m := New[int](1)
		require.NoError(t, m.SendTimeout(1, 50*time.Millisecond))
		err := m.SendTimeout(2, 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("With a bounded mailbox unblocked by a receive", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		m := New[int](1)
		require.NoError(t, m.Send(1))
		done := make(chan error, 1)
		go func() {
			done <- m.SendTimeout(2, time.Second)
		}()
		time.Sleep(20 * time.Millisecond)
		item, err := m.Recv()
		require.NoError(t, err)
		assert.Equal(t, 1, item)
		require.NoError(t, <-done)
		item, err = m.Recv()
		require.NoError(t, err)
		assert.Equal(t, 2, item)
	})

	t.Run("With the last receiver leaving", func(t *testing.T) {
		m := New[int](0)
		m.AddReceiver()
		m.AddReceiver()
		require.NoError(t, m.Send(1))

		assert.Nil(t, m.RemoveReceiver())
		pending := m.RemoveReceiver()
		require.Len(t, pending, 1)
		assert.Equal(t, 1, pending[0])

		assert.ErrorIs(t, m.Send(2), ErrClosed)
	})

	t.Run("With many producers and consumers", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		const senders, perSender = 10, 100
		m := New[int](0)
		var wg sync.WaitGroup
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perSender; j++ {
					require.NoError(t, m.Send(1))
				}
			}()
		}

		var recvWG sync.WaitGroup
		var mu sync.Mutex
		total := 0
		for i := 0; i < 4; i++ {
			recvWG.Add(1)
			go func() {
				defer recvWG.Done()
				for {
					n, err := m.Recv()
					if err != nil {
						return
					}
					mu.Lock()
					total += n
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		// close only after every send completed; receivers drain the rest
		m.Close()
		recvWG.Wait()
		assert.Equal(t, senders*perSender, total)
	})
}
