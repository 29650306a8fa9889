// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macq/tomtom-api/pkg/traffic"
)

func newTestDaemon(t *testing.T, client traffic.Client) (*Daemon, *Store) {
	t.Helper()
	store := newStoreOnFs(t, afero.NewMemMapFs())
	daemon := NewDaemon(store, client, time.Minute, "")
	return daemon, store
}

func queueWaiting(t *testing.T, store *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := Add(context.Background(), store, fmt.Sprintf("job-%d", i),
			traffic.RouteAnalysis, []byte(fmt.Sprintf(`{"n":%d}`, i)), 0)
		require.NoError(t, err)
	}
}

func countByStatus(store *Store) map[ItemStatus]int {
	counts := make(map[ItemStatus]int)
	for _, item := range store.Items() {
		counts[item.Status()]++
	}
	return counts
}

func TestTickSubmitsUpToTheCap(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 7)

	require.NoError(t, daemon.Tick(context.Background()))

	counts := countByStatus(store)
	assert.Equal(t, DefaultConcurrentJobs, counts[StatusSubmitted])
	assert.Equal(t, 2, counts[StatusWaiting])
	assert.Len(t, client.Submitted, DefaultConcurrentJobs)
}

func TestTickCountsRemoteJobsAgainstTheCap(t *testing.T) {
	client := traffic.NewDummyClient()
	client.NextJobID = 10
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 5)

	// Three of our submissions are still being processed remotely.
	submitted := time.Now().UTC()
	for _, item := range store.Next(3) {
		at := submitted
		item.SubmittedAt = &at
		id := client.NextJobID
		item.JobID = &id
		client.NextJobID++
		client.ActiveJobs = append(client.ActiveJobs, traffic.JobInfo{
			JobID: id,
			State: traffic.StateCalculations,
		})
	}
	require.NoError(t, store.Flush(context.Background()))

	require.NoError(t, daemon.Tick(context.Background()))

	counts := countByStatus(store)
	assert.Equal(t, 5, counts[StatusSubmitted])
	assert.Equal(t, 0, counts[StatusWaiting])
	// Only the two free slots were used.
	assert.Len(t, client.Submitted, 2)
}

func TestTickSkipsWhenRemoteCapIsReached(t *testing.T) {
	client := traffic.NewDummyClient()
	// Five active jobs on the account, none of them ours.
	client.TotalOverride = 5
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 3)

	require.NoError(t, daemon.Tick(context.Background()))

	counts := countByStatus(store)
	assert.Equal(t, 3, counts[StatusWaiting])
	assert.Equal(t, 0, client.SubmittedCount())
}

func TestTickCompletesFinishedJobs(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 1)

	require.NoError(t, daemon.Tick(context.Background()))
	require.Equal(t, 1, countByStatus(store)[StatusSubmitted])

	// The job left the remote active set; the dummy reports DONE.
	require.NoError(t, daemon.Tick(context.Background()))
	assert.Equal(t, 1, countByStatus(store)[StatusCompleted])
}

func TestTickMarksFailedJobs(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 1)

	require.NoError(t, daemon.Tick(context.Background()))

	client.JobState = traffic.StateError
	require.NoError(t, daemon.Tick(context.Background()))
	assert.Equal(t, 1, countByStatus(store)[StatusError])
}

type searchFailureClient struct {
	*traffic.DummyClient
}

func (c *searchFailureClient) Search(context.Context, traffic.SearchFilters) (*traffic.SearchResponse, error) {
	return nil, errors.New("gateway timeout")
}

func TestTickAbortsWhenSearchFails(t *testing.T) {
	daemon, store := newTestDaemon(t, &searchFailureClient{traffic.NewDummyClient()})
	queueWaiting(t, store, 2)

	require.Error(t, daemon.Tick(context.Background()))

	// Nothing was submitted: the remote state is unknown.
	assert.Equal(t, 2, countByStatus(store)[StatusWaiting])
}

type submitErrorClient struct {
	*traffic.DummyClient
}

func (c *submitErrorClient) SubmitRoute(context.Context, []byte) (*traffic.AnalysisResponse, error) {
	return nil, errors.New("connection reset")
}

func TestTickConvertsSubmitFailuresToErrorState(t *testing.T) {
	daemon, store := newTestDaemon(t, &submitErrorClient{traffic.NewDummyClient()})
	queueWaiting(t, store, 1)

	require.NoError(t, daemon.Tick(context.Background()))
	assert.Equal(t, 1, countByStatus(store)[StatusError])
}

func TestTickPersistsEverySubmission(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 2)

	require.NoError(t, daemon.Tick(context.Background()))

	// A fresh view of the same file sees the submissions.
	reopened, err := NewStore(context.Background(), store.fs, store.File(), store.Payloads())
	require.NoError(t, err)
	assert.Equal(t, 2, countByStatus(reopened)[StatusSubmitted])
}

func TestTickReloadsBeforeActing(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)

	// Another process enqueues an item after the daemon opened the store.
	other, err := NewStore(context.Background(), store.fs, store.File(), store.Payloads())
	require.NoError(t, err)
	_, err = Add(context.Background(), other, "late", traffic.RouteAnalysis, []byte(`{}`), 0)
	require.NoError(t, err)

	require.NoError(t, daemon.Tick(context.Background()))
	assert.Equal(t, 1, countByStatus(store)[StatusSubmitted])
}

func TestRunSleepsBeforeTheFirstTick(t *testing.T) {
	client := traffic.NewDummyClient()
	daemon, store := newTestDaemon(t, client)
	queueWaiting(t, store, 1)

	mock := clock.NewMock()
	daemon.clock = mock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	// Let the goroutine reach the select before moving the clock.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, client.SubmittedCount())

	mock.Add(time.Minute)
	assert.Eventually(t, func() bool {
		return client.SubmittedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
