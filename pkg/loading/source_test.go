package loading

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func collect[T any](t *testing.T, ch <-chan State[T], n int) []State[T] {
	t.Helper()
	out := make([]State[T], 0, n)
	for len(out) < n {
		select {
		case st, ok := <-ch:
			if !ok {
				t.Fatalf("state channel closed after %d states, want %d", len(out), n)
			}
			out = append(out, st)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d states, want %d", len(out), n)
		}
	}
	return out
}

func TestSource_LoadingThenData(t *testing.T) {
	s := NewSource[int]()
	defer s.Close()

	s.Fetch(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})

	states := collect(t, s.States(), 2)
	assert.True(t, states[0].Loading)
	assert.Nil(t, states[0].Data, "stale data must be cleared while loading")
	require.True(t, states[1].Settled())
	require.NotNil(t, states[1].Data)
	assert.Equal(t, 42, *states[1].Data)
}

func TestSource_LoadingThenError(t *testing.T) {
	s := NewSource[int]()
	defer s.Close()

	boom := errors.New("boom")
	s.Fetch(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	})

	states := collect(t, s.States(), 2)
	assert.True(t, states[0].Loading)
	assert.ErrorIs(t, states[1].Err, boom)
	assert.Nil(t, states[1].Data)
}

func TestSource_SecondFetchPreemptsFirst(t *testing.T) {
	s := NewSource[string]()
	defer s.Close()

	firstCanceled := make(chan struct{})
	release := make(chan struct{})

	s.Fetch(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(firstCanceled)
		<-release
		return "stale", nil
	})
	s.Fetch(context.Background(), func(context.Context) (string, error) {
		return "fresh", nil
	})
	close(release)

	select {
	case <-firstCanceled:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch context never canceled")
	}

	// Two Pending emissions, then exactly one terminal state: the second's.
	var terminals []State[string]
	deadline := time.After(time.Second)
drain:
	for {
		select {
		case st := <-s.States():
			if st.Settled() {
				terminals = append(terminals, st)
			}
		case <-deadline:
			break drain
		}
	}
	require.Len(t, terminals, 1)
	require.NotNil(t, terminals[0].Data)
	assert.Equal(t, "fresh", *terminals[0].Data)
}

func TestSource_CancelDropsInterest(t *testing.T) {
	s := NewSource[int]()
	defer s.Close()

	started := make(chan struct{})
	s.Fetch(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 99, nil
	})
	<-started
	s.Cancel()

	states := collect(t, s.States(), 1)
	assert.True(t, states[0].Loading)
	select {
	case st := <-s.States():
		t.Fatalf("state emitted after cancel: %+v", st)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSource_LaggingConsumerSeesNewest(t *testing.T) {
	s := NewSource[int]()
	defer s.Close()

	// Never read until several fetches have settled.
	for i := range 10 {
		s.Fetch(context.Background(), func(context.Context) (int, error) {
			return i, nil
		})
	}

	var last State[int]
	deadline := time.After(time.Second)
	for {
		select {
		case st := <-s.States():
			last = st
			if st.Settled() && st.Data != nil && *st.Data == 9 {
				return
			}
		case <-deadline:
			t.Fatalf("never saw newest terminal state, last %+v", last)
		}
	}
}

func TestRun(t *testing.T) {
	st := Run(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NotNil(t, st.Data)
	assert.Equal(t, "ok", *st.Data)

	st2 := Run(context.Background(), func(context.Context) (string, error) {
		return "", errors.New("nope")
	})
	assert.Error(t, st2.Err)
}
