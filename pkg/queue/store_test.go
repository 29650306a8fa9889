// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macq/tomtom-api/pkg/traffic"
)

func newStoreOnFs(t *testing.T, fs afero.Fs) *Store {
	t.Helper()
	payloads := NewPayloadStore(fs, "/home/payloads")
	store, err := NewStore(context.Background(), fs, "/home/db.parquet", payloads)
	require.NoError(t, err)
	return store
}

func testItem(uid string, priority int64, createdAt time.Time) *Item {
	return &Item{
		UID:         uid,
		Name:        "item-" + uid,
		ReportType:  traffic.RouteAnalysis,
		PayloadLink: "/home/payloads/" + uid + ".json",
		Priority:    priority,
		CreatedAt:   createdAt,
	}
}

func insertAndFlush(t *testing.T, store *Store, items ...*Item) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, store.Insert(item))
	}
	require.NoError(t, store.Flush(context.Background()))
}

func TestStoreStartsEmpty(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())
	assert.Empty(t, store.Items())
}

func TestStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)

	created := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	submitted := created.Add(2 * time.Minute)
	jobID := int64(42)

	item := testItem("aaa", 3, created)
	item.SubmittedAt = &submitted
	item.JobID = &jobID
	insertAndFlush(t, store, item)

	reopened := newStoreOnFs(t, fs)
	items := reopened.Items()
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "aaa", got.UID)
	assert.Equal(t, "item-aaa", got.Name)
	assert.Equal(t, traffic.RouteAnalysis, got.ReportType)
	assert.Equal(t, int64(3), got.Priority)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, got.SubmittedAt.Equal(submitted))
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.ErrorAt)
	require.NotNil(t, got.JobID)
	assert.Equal(t, int64(42), *got.JobID)
	assert.Equal(t, StatusSubmitted, got.Status())
}

func TestInsertRejectsDuplicateUID(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())

	require.NoError(t, store.Insert(testItem("aaa", 0, time.Now())))
	assert.Error(t, store.Insert(testItem("aaa", 5, time.Now())))
}

func TestInsertDoesNotFlush(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)

	require.NoError(t, store.Insert(testItem("aaa", 0, time.Now().UTC())))

	exists, err := afero.Exists(fs, store.File())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpsertReplacesRows(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)

	insertAndFlush(t, store, testItem("aaa", 1, time.Now().UTC()))

	replacement := testItem("aaa", 9, time.Now().UTC())
	require.NoError(t, store.Upsert(ctx, []*Item{replacement}, true))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(9), items[0].Priority)

	reopened := newStoreOnFs(t, fs)
	got, err := reopened.Get("aaa")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Priority)
}

func TestFlushKeepsConcurrentWriterRows(t *testing.T) {
	fs := afero.NewMemMapFs()

	// Two processes sharing the same file.
	first := newStoreOnFs(t, fs)
	second := newStoreOnFs(t, fs)

	insertAndFlush(t, first, testItem("aaa", 0, time.Now().UTC()))
	insertAndFlush(t, second, testItem("bbb", 0, time.Now().UTC()))

	// The second flush must not erase what the first one wrote.
	reopened := newStoreOnFs(t, fs)
	uids := make([]string, 0, 2)
	for _, item := range reopened.Items() {
		uids = append(uids, item.UID)
	}
	assert.ElementsMatch(t, []string{"aaa", "bbb"}, uids)
}

func TestFlushInMemoryRowWins(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	store := newStoreOnFs(t, fs)
	insertAndFlush(t, store, testItem("aaa", 0, time.Now().UTC()))

	// Another process still holds the pre-cancel row and flushes it back.
	stale := newStoreOnFs(t, fs)

	item, err := store.Get("aaa")
	require.NoError(t, err)
	require.NoError(t, item.Cancel())
	require.NoError(t, store.Flush(ctx))

	// The in-memory row of the flushing process takes precedence over the
	// one on disk.
	require.NoError(t, stale.Flush(ctx))
	require.NoError(t, store.Load(ctx))
	item, err = store.Get("aaa")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, item.Status())
}

func TestNextOrdersByPriorityThenAge(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(testItem("low-old", 1, base)))
	require.NoError(t, store.Insert(testItem("high-new", 9, base.Add(3*time.Minute))))
	require.NoError(t, store.Insert(testItem("high-old", 9, base.Add(1*time.Minute))))
	require.NoError(t, store.Insert(testItem("mid", 5, base.Add(2*time.Minute))))

	cancelled := testItem("cancelled", 99, base)
	now := base
	cancelled.CancelledAt = &now
	require.NoError(t, store.Insert(cancelled))

	next := store.Next(3)
	require.Len(t, next, 3)
	assert.Equal(t, "high-old", next[0].UID)
	assert.Equal(t, "high-new", next[1].UID)
	assert.Equal(t, "mid", next[2].UID)

	all := store.Next(0)
	assert.Len(t, all, 4)
}

func TestFilter(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())

	base := time.Now().UTC()
	require.NoError(t, store.Insert(testItem("aaa", 1, base)))
	require.NoError(t, store.Insert(testItem("bbb", 5, base)))

	errored := testItem("ccc", 9, base)
	errored.ErrorAt = &base
	require.NoError(t, store.Insert(errored))

	byUID, err := store.Filter(FilterOptions{UIDs: []string{"aaa", "ccc"}})
	require.NoError(t, err)
	assert.Len(t, byUID, 2)

	byName, err := store.Filter(FilterOptions{Names: []string{"item-b"}})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "bbb", byName[0].UID)

	byPriority, err := store.Filter(FilterOptions{Priorities: []string{">=5", "<9"}})
	require.NoError(t, err)
	require.Len(t, byPriority, 1)
	assert.Equal(t, "bbb", byPriority[0].UID)

	byStatus, err := store.Filter(FilterOptions{Statuses: []ItemStatus{StatusError}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "ccc", byStatus[0].UID)

	combined, err := store.Filter(FilterOptions{
		Priorities: []string{">0"},
		Statuses:   []ItemStatus{StatusWaiting},
	})
	require.NoError(t, err)
	assert.Len(t, combined, 2)

	_, err = store.Filter(FilterOptions{Priorities: []string{"high"}})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(testItem("waiting", 0, base)))

	for i, minutes := range []int{10, 20} {
		item := testItem(fmt.Sprintf("done-%d", i), 0, base)
		submitted := base.Add(time.Minute)
		completed := submitted.Add(time.Duration(minutes) * time.Minute)
		item.SubmittedAt = &submitted
		item.CompletedAt = &completed
		require.NoError(t, store.Insert(item))
	}

	description := store.Describe()
	assert.Equal(t, 3, description.Total)
	assert.Equal(t, 1, description.Counts[StatusWaiting])
	assert.Equal(t, 2, description.Counts[StatusCompleted])
	assert.Equal(t, 0, description.Counts[StatusError])

	require.NotNil(t, description.Completion)
	assert.InDelta(t, 10.0, description.Completion.Min, 0.001)
	assert.InDelta(t, 20.0, description.Completion.Max, 0.001)
	assert.InDelta(t, 15.0, description.Completion.Mean, 0.001)
	assert.InDelta(t, 5.0, description.Completion.StdDev, 0.001)
}

func TestDescribeDoesNotWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)
	insertAndFlush(t, store, testItem("aaa", 0, time.Now().UTC()))

	before, err := afero.ReadFile(fs, store.File())
	require.NoError(t, err)

	store.Describe()

	after, err := afero.ReadFile(fs, store.File())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)

	item, err := Add(ctx, store, "brussels", traffic.RouteAnalysis, []byte(`{}`), 0)
	require.NoError(t, err)

	require.NoError(t, store.Purge())
	assert.Empty(t, store.Items())

	exists, err := afero.Exists(fs, store.File())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Payloads().Get(item.UID)
	assert.ErrorIs(t, err, ErrPayloadMissing)
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStoreOnFs(t, afero.NewMemMapFs())

	_, err := Add(ctx, store, "brussels", traffic.RouteAnalysis, []byte(`{"a":1}`), 0)
	require.NoError(t, err)

	// Same payload and name, so the same uid: the second add is rejected
	// and the store still holds a single row.
	_, err = Add(ctx, store, "brussels", traffic.RouteAnalysis, []byte(`{"a":1}`), 5)
	require.Error(t, err)
	assert.Len(t, store.Items(), 1)
}

func TestAddThenUpdate(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := newStoreOnFs(t, fs)

	item, err := Add(ctx, store, "brussels", traffic.RouteAnalysis, []byte(`{"a":1}`), 2)
	require.NoError(t, err)

	priority := int64(8)
	_, err = Update(ctx, store, item.UID, UpdateOptions{Priority: &priority})
	require.NoError(t, err)

	reopened := newStoreOnFs(t, fs)
	got, err := reopened.Get(item.UID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Priority)
	assert.NotNil(t, got.UpdatedAt)
}

func TestUpdateUnknownUID(t *testing.T) {
	store := newStoreOnFs(t, afero.NewMemMapFs())

	name := "x"
	_, err := Update(context.Background(), store, "missing", UpdateOptions{Name: &name})
	assert.Error(t, err)
}
