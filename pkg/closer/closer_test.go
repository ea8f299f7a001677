package closer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	c := NewCloser(time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.Add("db", record("db"))
	c.Add("kafka", record("kafka"))
	c.Add("http", record("http"))

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"http", "kafka", "db"}, order)
}

func TestCloseCollectsErrors(t *testing.T) {
	c := NewCloser(time.Second)
	boom := errors.New("boom")

	c.Add("ok", func(context.Context) error { return nil })
	c.Add("broken", func(context.Context) error { return boom })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close broken")
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewCloser(time.Second)
	calls := 0
	c.Add("once", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCloseForcesRemainingOnTimeout(t *testing.T) {
	c := NewCloser(200 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	var fastCalls, slowCalls atomic.Int32
	c.Add("fast", func(context.Context) error {
		fastCalls.Add(1)
		return nil
	})
	c.Add("slow", func(context.Context) error {
		if slowCalls.Add(1) == 1 {
			<-release
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted with 2/2 resources left")
	assert.Equal(t, int32(1), fastCalls.Load())
	assert.Equal(t, int32(2), slowCalls.Load())
}
