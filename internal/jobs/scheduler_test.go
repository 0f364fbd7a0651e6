package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReminders struct {
	calls int
	err   error
}

func (f *fakeReminders) SendReminders(_ context.Context, sendFunc func(int64, string)) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	sendFunc(42, "🔥")
	return 1, nil
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, &fakeReminders{}, func(int64, string) {})
	err := s.Start(context.Background(), "каждый вечер")
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(time.UTC, &fakeReminders{}, func(int64, string) {})
	require.NoError(t, s.Start(context.Background(), "0 18 * * *"))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestRunRemindersSendsThroughCallback(t *testing.T) {
	var got []int64
	rem := &fakeReminders{}
	s := NewScheduler(time.UTC, rem, func(userID int64, _ string) { got = append(got, userID) })

	s.runReminders(context.Background())
	assert.Equal(t, []int64{42}, got)

	rem.err = errors.New("db down")
	s.runReminders(context.Background())
	assert.Equal(t, 2, rem.calls)
	assert.Len(t, got, 1)
}
