// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/macq/tomtom-api/pkg/pidfile"
	"github.com/macq/tomtom-api/pkg/traffic"
	"github.com/macq/tomtom-api/pkg/util/log"
)

// DefaultConcurrentJobs is the number of jobs the remote service accepts in
// flight for one account.
const DefaultConcurrentJobs = 5

// Daemon drains the queue: on every tick it reconciles submitted items with
// the remote service and submits waiting ones while respecting the remote
// concurrency cap.
type Daemon struct {
	store  *Store
	client traffic.Client
	clock  clock.Clock

	loopDuration  time.Duration
	pidFilePath   string
	maxConcurrent int
}

// NewDaemon builds a daemon around an opened store and a remote client.
func NewDaemon(store *Store, client traffic.Client, loopDuration time.Duration, pidFilePath string) *Daemon {
	return &Daemon{
		store:         store,
		client:        client,
		clock:         clock.New(),
		loopDuration:  loopDuration,
		pidFilePath:   pidFilePath,
		maxConcurrent: DefaultConcurrentJobs,
	}
}

// Run loops until the context is cancelled. Each iteration sleeps first:
// items enqueued while the daemon is down are only picked up after one full
// period, and a crashing tick cannot hot-loop. Tick errors are logged and
// swallowed.
func (d *Daemon) Run(ctx context.Context) error {
	if d.pidFilePath != "" {
		if err := pidfile.WritePID(d.pidFilePath); err != nil {
			return fmt.Errorf("writing pid file: %w", err)
		}
		defer pidfile.Remove(d.pidFilePath)
		log.Infof("Daemon pid written to %s", d.pidFilePath)
	}

	log.Infof("Daemon started, looping every %s", d.loopDuration)
	timer := d.clock.Timer(d.loopDuration)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Daemon stopping")
			return ctx.Err()
		case <-timer.C:
		}

		if err := d.Tick(ctx); err != nil {
			log.Criticalf("Queue iteration failed: %v", err) //nolint:errcheck
		}
		timer.Reset(d.loopDuration)
	}
}

// activeRemoteJobs returns the ids of every job the remote still considers
// in flight, plus their total count. The total counts every active job on
// the account, including ones never seen by this queue.
func (d *Daemon) activeRemoteJobs(ctx context.Context) (map[int64]struct{}, int, error) {
	perPage := 100
	filters := traffic.SearchFilters{
		PerPage: &perPage,
		States:  traffic.ActiveJobStates,
	}
	response, err := d.client.Search(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("searching active remote jobs: %w", err)
	}

	// A second request when the first page was not enough.
	if response.TotalElements > int64(response.NumberOfElements) {
		perPage = int(response.TotalElements)
		response, err = d.client.Search(ctx, filters)
		if err != nil {
			return nil, 0, fmt.Errorf("searching active remote jobs: %w", err)
		}
	}
	return response.JobIDs(), int(response.TotalElements), nil
}

// Tick runs one queue iteration: reload, reconcile, admit.
func (d *Daemon) Tick(ctx context.Context) error {
	if err := d.store.Load(ctx); err != nil {
		return fmt.Errorf("reloading the queue: %w", err)
	}

	active, nActive, err := d.activeRemoteJobs(ctx)
	if err != nil {
		return err
	}
	if nActive >= d.maxConcurrent {
		log.Debugf("Remote capacity exhausted (%d active jobs), waiting", nActive)
		return nil
	}

	// Submitted items whose remote job left the active set are done, in
	// success or failure. Complete figures out which.
	for _, item := range d.store.Items() {
		if item.Status() != StatusSubmitted {
			continue
		}
		if item.JobID != nil {
			if _, ok := active[*item.JobID]; ok {
				continue
			}
		}
		if err := item.Complete(ctx, d.client); err != nil {
			item.Error(fmt.Sprintf("completing item %s: %v", item.UID, err))
		}
		if err := d.store.Upsert(ctx, []*Item{item}, true); err != nil {
			return err
		}
	}

	// Fill the capacity left by the jobs still active on the remote side.
	for _, item := range d.store.Next(d.maxConcurrent - nActive) {
		if err := item.Submit(ctx, d.client); err != nil {
			item.Error(fmt.Sprintf("submitting item %s: %v", item.UID, err))
		}
		// Flush after every submission so an accepted remote job is
		// never lost to a crash later in the loop.
		if err := d.store.Upsert(ctx, []*Item{item}, true); err != nil {
			return err
		}
	}
	return nil
}
