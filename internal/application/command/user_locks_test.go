package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	l := newUserLocks()

	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "u1")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestUserLocks_DifferentUsersDoNotBlock(t *testing.T) {
	l := newUserLocks()

	a, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	b, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)

	assert.Equal(t, 2, l.size())
	a()
	b()
	assert.Equal(t, 0, l.size())
}

func TestUserLocks_ContextCancel(t *testing.T) {
	l := newUserLocks()

	unlock, err := l.Lock(context.Background(), "u1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.size())
}
