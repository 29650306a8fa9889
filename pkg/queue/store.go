// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/macq/tomtom-api/pkg/util/log"
)

// Store is the on-disk submission queue: a single parquet table plus one
// payload blob per item. Several processes may share the file; Flush merges
// with whatever is on disk instead of blindly overwriting it.
type Store struct {
	fs       afero.Fs
	file     string
	payloads *PayloadStore

	mu    sync.Mutex
	items []*Item
}

// NewStore opens the queue table at file, creating the parent directory when
// needed, and loads its current content.
func NewStore(ctx context.Context, fs afero.Fs, file string, payloads *PayloadStore) (*Store, error) {
	if err := fs.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("creating queue folder: %w", err)
	}
	s := &Store{fs: fs, file: file, payloads: payloads}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// File returns the path of the queue table.
func (s *Store) File() string { return s.file }

// Payloads returns the payload blob store.
func (s *Store) Payloads() *PayloadStore { return s.payloads }

// Load replaces the in-memory view with the on-disk table.
func (s *Store) Load(ctx context.Context) error {
	items, err := readParquet(ctx, s.fs, s.file)
	if err != nil {
		return err
	}
	for _, item := range items {
		item.attachPayloadStore(s.payloads)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	log.Debugf("Loaded %d items from %s", len(items), s.file)
	return nil
}

// Flush persists the in-memory items. The table is re-read first and merged
// in: for each uid the in-memory row wins, rows only present on disk are
// kept. A concurrent writer can therefore add items without this process
// erasing them.
func (s *Store) Flush(ctx context.Context) error {
	diskItems, err := readParquet(ctx, s.fs, s.file)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]*Item, 0, len(s.items)+len(diskItems))
	seen := make(map[string]struct{}, len(s.items))
	for _, item := range s.items {
		if _, ok := seen[item.UID]; ok {
			continue
		}
		seen[item.UID] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range diskItems {
		if _, ok := seen[item.UID]; ok {
			continue
		}
		seen[item.UID] = struct{}{}
		item.attachPayloadStore(s.payloads)
		merged = append(merged, item)
	}

	if err := writeParquet(s.fs, filepath.Dir(s.file), s.file, merged); err != nil {
		return fmt.Errorf("flushing queue table: %w", err)
	}
	s.items = merged

	log.Debugf("Flushed %d items to %s", len(merged), s.file)
	return nil
}

// Insert appends a new item to the in-memory table without flushing.
// Re-adding a uid that is already queued is rejected: identical payload and
// name mean identical uid.
func (s *Store) Insert(item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.UID == item.UID {
			return fmt.Errorf("item %s is already in the queue", item.UID)
		}
	}
	item.attachPayloadStore(s.payloads)
	s.items = append(s.items, item)
	return nil
}

// Upsert replaces the rows matching the given uids and appends the rest,
// optionally flushing the result.
func (s *Store) Upsert(ctx context.Context, items []*Item, flush bool) error {
	s.mu.Lock()
	for _, item := range items {
		item.attachPayloadStore(s.payloads)
		replaced := false
		for i, existing := range s.items {
			if existing.UID == item.UID {
				s.items[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			s.items = append(s.items, item)
		}
	}
	s.mu.Unlock()

	if flush {
		return s.Flush(ctx)
	}
	return nil
}

// Get returns the item with the given uid.
func (s *Store) Get(uid string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.UID == uid {
			return item, nil
		}
	}
	return nil, fmt.Errorf("no item %s in the queue", uid)
}

// Items returns a snapshot of all items.
func (s *Store) Items() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*Item, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}

// Next returns up to n waiting items, highest priority first, oldest first
// within equal priorities. n <= 0 returns every waiting item.
func (s *Store) Next(n int) []*Item {
	s.mu.Lock()
	waiting := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Status() == StatusWaiting {
			waiting = append(waiting, item)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(waiting, func(i, j int) bool {
		if waiting[i].Priority != waiting[j].Priority {
			return waiting[i].Priority > waiting[j].Priority
		}
		return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
	})

	if n > 0 && len(waiting) > n {
		waiting = waiting[:n]
	}
	return waiting
}

// FilterOptions narrows a queue listing. Values within one field are OR-ed,
// the fields themselves are AND-ed. Priority expressions support =, <, >,
// <= and >= prefixes; a bare number means equality. Status is matched on
// the derived status, after all timestamp fields are considered.
type FilterOptions struct {
	UIDs       []string
	Names      []string
	Priorities []string
	Statuses   []ItemStatus
}

type priorityPredicate func(int64) bool

func parsePriorityExpression(expr string) (priorityPredicate, error) {
	expr = strings.TrimSpace(expr)
	op := "="
	rest := expr
	for _, candidate := range []string{"<=", ">=", "<", ">", "="} {
		if strings.HasPrefix(expr, candidate) {
			op = candidate
			rest = strings.TrimSpace(expr[len(candidate):])
			break
		}
	}
	value, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid priority expression %q", expr)
	}
	switch op {
	case "<":
		return func(p int64) bool { return p < value }, nil
	case ">":
		return func(p int64) bool { return p > value }, nil
	case "<=":
		return func(p int64) bool { return p <= value }, nil
	case ">=":
		return func(p int64) bool { return p >= value }, nil
	default:
		return func(p int64) bool { return p == value }, nil
	}
}

// Filter returns the items matching the given options.
func (s *Store) Filter(opts FilterOptions) ([]*Item, error) {
	predicates := make([]priorityPredicate, 0, len(opts.Priorities))
	for _, expr := range opts.Priorities {
		predicate, err := parsePriorityExpression(expr)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}

	matched := make([]*Item, 0)
	for _, item := range s.Items() {
		if len(opts.UIDs) > 0 && !containsString(opts.UIDs, item.UID) {
			continue
		}
		if len(opts.Names) > 0 && !matchesSubstring(opts.Names, item.Name) {
			continue
		}
		if !matchesPriority(predicates, item.Priority) {
			continue
		}
		if len(opts.Statuses) > 0 && !containsStatus(opts.Statuses, item.Status()) {
			continue
		}
		matched = append(matched, item)
	}
	return matched, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func matchesSubstring(fragments []string, name string) bool {
	for _, fragment := range fragments {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

func matchesPriority(predicates []priorityPredicate, priority int64) bool {
	for _, predicate := range predicates {
		if !predicate(priority) {
			return false
		}
	}
	return true
}

func containsStatus(statuses []ItemStatus, status ItemStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// CompletionStats summarizes submission-to-completion latency, in minutes.
type CompletionStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Description is a read-only summary of the queue.
type Description struct {
	Total  int
	Counts map[ItemStatus]int
	// Completion is nil when no item has completed yet.
	Completion *CompletionStats
}

// Describe summarizes the queue without modifying it.
func (s *Store) Describe() *Description {
	items := s.Items()

	description := &Description{
		Total:  len(items),
		Counts: make(map[ItemStatus]int, len(AllStatuses)),
	}
	for _, status := range AllStatuses {
		description.Counts[status] = 0
	}

	durations := make([]float64, 0, len(items))
	for _, item := range items {
		description.Counts[item.Status()]++
		if item.Status() == StatusCompleted && item.CompletedAt != nil && item.SubmittedAt != nil {
			durations = append(durations, item.CompletedAt.Sub(*item.SubmittedAt).Minutes())
		}
	}

	if len(durations) > 0 {
		stats := &CompletionStats{Min: durations[0], Max: durations[0]}
		sum := 0.0
		for _, d := range durations {
			sum += d
			stats.Min = math.Min(stats.Min, d)
			stats.Max = math.Max(stats.Max, d)
		}
		stats.Mean = sum / float64(len(durations))

		variance := 0.0
		for _, d := range durations {
			variance += (d - stats.Mean) * (d - stats.Mean)
		}
		stats.StdDev = math.Sqrt(variance / float64(len(durations)))
		description.Completion = stats
	}

	return description
}

// Purge deletes the queue table and every payload blob.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing queue table: %w", err)
	}
	if err := s.payloads.RemoveAll(); err != nil {
		return err
	}
	s.items = nil

	log.Infof("Purged the queue at %s", s.file)
	return nil
}

// OldestCreation reports the creation time of the oldest item, used by the
// queue summary output.
func (s *Store) OldestCreation() (time.Time, bool) {
	items := s.Items()
	if len(items) == 0 {
		return time.Time{}, false
	}
	oldest := items[0].CreatedAt
	for _, item := range items[1:] {
		if item.CreatedAt.Before(oldest) {
			oldest = item.CreatedAt
		}
	}
	return oldest, true
}
