package executors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
)

type fakeExceptions struct {
	mu   sync.Mutex
	rows []model.Exception
}

func (f *fakeExceptions) Create(_ context.Context, exc *model.Exception) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *exc)
	return nil
}

func (f *fakeExceptions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func TestSchedulerStartStopStatus(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{}
	s := NewJobScheduler(client, ads, &fakeAttempts{}, &fakeExceptions{}, &fakeNotifier{}, nil)

	assert.False(t, s.Status().Running)

	cfg := model.DefaultTradeConfig()
	s.Start(context.Background(), &cfg)

	status := s.Status()
	assert.True(t, status.Running)

	// Both loops complete their first cycle immediately.
	assert.Eventually(t, func() bool {
		st := s.Status()
		return st.FetchLastRun != nil && st.ExecuteLastRun != nil
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Status().Running)

	// Stop on an idle scheduler is a no-op.
	s.Stop()
}

func TestSchedulerStartWhileRunningKeepsRun(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{}
	s := NewJobScheduler(client, ads, &fakeAttempts{}, &fakeExceptions{}, &fakeNotifier{}, nil)

	cfg := model.DefaultTradeConfig()
	s.Start(context.Background(), &cfg)
	require.True(t, s.Status().Running)

	require.Eventually(t, func() bool {
		return s.Status().FetchLastRun != nil
	}, time.Second, 5*time.Millisecond)
	firstSearches := client.searchCount()

	other := model.DefaultTradeConfig()
	other.Asset = "BTC"
	s.Start(context.Background(), &other)

	assert.True(t, s.Status().Running)
	assert.Equal(t, "BTC", s.currentSession().Asset)
	// No second pair of loops was launched.
	assert.Equal(t, firstSearches, client.searchCount())

	s.Stop()
}

func TestSchedulerStorageFailureStopsBothLoops(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{queryErr: errors.New("db down")}
	exceptions := &fakeExceptions{}
	n := &fakeNotifier{}
	s := NewJobScheduler(client, ads, &fakeAttempts{}, exceptions, n, nil)

	cfg := model.DefaultTradeConfig()
	s.Start(context.Background(), &cfg)

	assert.Eventually(t, func() bool {
		return !s.Status().Running
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, exceptions.count())
	assert.GreaterOrEqual(t, n.kindCount(notify.KindAlert), 1)
}

func TestSchedulerRestartUsesFreshState(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "10", "10", "100", "50"),
	}}
	attempts := &fakeAttempts{}
	s := NewJobScheduler(client, ads, attempts, &fakeExceptions{}, &fakeNotifier{}, nil)

	cfg := model.DefaultTradeConfig()
	cfg.NoOfOrders = 1

	s.Start(context.Background(), &cfg)
	assert.Eventually(t, func() bool {
		attempts.mu.Lock()
		defer attempts.mu.Unlock()
		return len(attempts.rows) == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	s.Start(context.Background(), &cfg)
	assert.Eventually(t, func() bool {
		attempts.mu.Lock()
		defer attempts.mu.Unlock()
		return len(attempts.rows) == 2
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	attempts.mu.Lock()
	defer attempts.mu.Unlock()
	require.Len(t, attempts.rows, 2)
	assert.NotEqual(t, attempts.rows[0].SessionID, attempts.rows[1].SessionID)
}
