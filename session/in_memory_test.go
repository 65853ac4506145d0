package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolmesh/core"
)

func TestInMemoryStore_GetSaveDelete(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Get("c1")
	assert.ErrorIs(t, err, ErrNotFound)

	conv := core.NewConversation(core.NewUserMessage("hi"))
	s.Save("c1", conv)

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, conv.Messages(), got.Messages())
	assert.Equal(t, []string{"c1"}, s.IDs())

	s.Delete("c1")
	_, err = s.Get("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_UpdateSerializesTurns(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "c1", func(_ context.Context, conv core.Conversation) (core.Conversation, error) {
				return conv.Append(core.NewUserMessage("x")), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Len())
}

func TestInMemoryStore_UpdateFailureKeepsPrevious(t *testing.T) {
	s := NewInMemoryStore()
	conv := core.NewConversation(core.NewUserMessage("hi"))
	s.Save("c1", conv)

	boom := errors.New("boom")
	_, err := s.Update(context.Background(), "c1", func(_ context.Context, c core.Conversation) (core.Conversation, error) {
		return c.Append(core.NewUserMessage("lost")), boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestInMemoryStore_UpdateCanceled(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := s.Update(ctx, "c1", func(_ context.Context, c core.Conversation) (core.Conversation, error) {
		called = true
		return c, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInMemoryStore_DeleteDuringUpdate(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var running atomic.Int32
	var overlapped atomic.Bool

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, "c1", func(_ context.Context, c core.Conversation) (core.Conversation, error) {
			running.Add(1)
			close(entered)
			<-release
			running.Add(-1)
			return c.Append(core.NewUserMessage("first")), nil
		})
		firstErr <- err
	}()
	<-entered

	s.Delete("c1")

	secondErr := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, "c1", func(_ context.Context, c core.Conversation) (core.Conversation, error) {
			if running.Load() != 0 {
				overlapped.Store(true)
			}
			return c.Append(core.NewUserMessage("second")), nil
		})
		secondErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-firstErr, ErrDeleted)
	require.NoError(t, <-secondErr)
	assert.False(t, overlapped.Load())

	got, err := s.Get("c1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "second", got.At(0).Content)
}
