package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmission_Bound(t *testing.T) {
	a := NewAdmission(3)
	assert.Equal(t, 3, a.Capacity())

	var releases []func()
	for range 3 {
		release, ok := a.TryAdmit()
		require.True(t, ok)
		releases = append(releases, release)
	}

	_, ok := a.TryAdmit()
	assert.False(t, ok)

	releases[0]()
	releases[0]()

	release, ok := a.TryAdmit()
	require.True(t, ok)

	// a second call to the same release must not free a second slot
	_, ok = a.TryAdmit()
	assert.False(t, ok)

	release()
	releases[1]()
	releases[2]()
}

func TestAdmission_AdmitBlocksUntilRelease(t *testing.T) {
	a := NewAdmission(1)
	release, ok := a.TryAdmit()
	require.True(t, ok)

	admitted := make(chan func())
	go func() {
		r, err := a.Admit(context.Background())
		if err == nil {
			admitted <- r
		}
	}()

	select {
	case <-admitted:
		t.Fatal("admitted while the only slot was taken")
	case <-time.After(30 * time.Millisecond):
	}

	release()

	select {
	case r := <-admitted:
		r()
	case <-time.After(time.Second):
		t.Fatal("not admitted after release")
	}
}

func TestAdmission_AdmitCanceled(t *testing.T) {
	a := NewAdmission(1)
	_, ok := a.TryAdmit()
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Admit(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdmission_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewAdmission(0).Capacity())
}
