// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/macq/tomtom-api/pkg/traffic"
	"github.com/macq/tomtom-api/pkg/util/log"
)

// Item is one user request for a remote job. Its status is never stored: it
// is projected from the timestamps (see Status).
type Item struct {
	UID         string
	Name        string
	ReportType  traffic.ReportType
	PayloadLink string
	Priority    int64

	CreatedAt   time.Time
	UpdatedAt   *time.Time
	SubmittedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	ErrorAt     *time.Time

	// JobID is the identifier returned by the remote service. Set iff the
	// item has been submitted.
	JobID *int64

	payloads *PayloadStore
}

// ComputeUID derives the content-addressed identifier of an item from its
// payload bytes and name. Stable across restarts.
func ComputeUID(payload []byte, name string) string {
	sum := md5.Sum(append(append([]byte{}, payload...), []byte(name)...))
	return hex.EncodeToString(sum[:])
}

// NewItem creates a waiting item and writes its payload blob.
func NewItem(name string, reportType traffic.ReportType, payload []byte, priority int64, payloads *PayloadStore) (*Item, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("cannot enqueue %q with an empty payload", name)
	}

	uid := ComputeUID(payload, name)
	link, err := payloads.Put(uid, payload)
	if err != nil {
		return nil, fmt.Errorf("storing payload of item %s: %w", uid, err)
	}

	return &Item{
		UID:         uid,
		Name:        name,
		ReportType:  reportType,
		PayloadLink: link,
		Priority:    priority,
		CreatedAt:   time.Now(),
		payloads:    payloads,
	}, nil
}

// Status projects the item status from its timestamps.
func (i *Item) Status() ItemStatus {
	switch {
	case i.ErrorAt != nil:
		return StatusError
	case i.CompletedAt != nil:
		return StatusCompleted
	case i.SubmittedAt != nil:
		return StatusSubmitted
	case i.CancelledAt != nil:
		return StatusCanceled
	default:
		return StatusWaiting
	}
}

// UpdateOptions carries the optional fields of an Update call. Nil fields
// are left untouched.
type UpdateOptions struct {
	Name     *string
	Priority *int64
	Cancel   *bool
	Payload  []byte
}

func (o UpdateOptions) empty() bool {
	return o.Name == nil && o.Priority == nil && o.Cancel == nil && o.Payload == nil
}

// Update mutates the editable fields of a waiting or cancelled item.
// Cancel=true moves the item to CANCELED, Cancel=false restores it to
// IS_WAITING. A new payload rewrites the blob (the uid does not change).
func (i *Item) Update(opts UpdateOptions) error {
	log.Debugf("Updating item %s", i.UID)
	if s := i.Status(); s != StatusWaiting && s != StatusCanceled {
		return illegalTransition(i.UID, "update", s)
	}
	if opts.empty() {
		return ErrEmptyUpdate
	}

	now := time.Now()
	i.UpdatedAt = &now

	if opts.Name != nil {
		i.Name = *opts.Name
	}
	if opts.Priority != nil {
		i.Priority = *opts.Priority
	}
	if opts.Payload != nil {
		if _, err := i.payloads.Put(i.UID, opts.Payload); err != nil {
			return fmt.Errorf("rewriting payload of item %s: %w", i.UID, err)
		}
	}
	if opts.Cancel != nil {
		if *opts.Cancel {
			if err := i.Cancel(); err != nil {
				return err
			}
		} else {
			i.CancelledAt = nil
		}
	}
	return nil
}

// Submit sends the item to the remote endpoint selected by its report type.
// The submission timestamp is set before the call so a crash can never leave
// an accepted remote job looking IS_WAITING. Network errors propagate; the
// daemon converts them into the error state.
func (i *Item) Submit(ctx context.Context, client traffic.Client) error {
	log.Debugf("Submitting item %s", i.UID)
	if s := i.Status(); s != StatusWaiting {
		return illegalTransition(i.UID, "submit", s)
	}

	payload, err := i.payloads.Get(i.UID)
	if err != nil {
		return err
	}

	now := time.Now()
	i.SubmittedAt = &now

	response, err := traffic.Submit(ctx, client, i.ReportType, payload)
	if err != nil {
		return err
	}

	i.JobID = response.JobID
	if response.IsError() {
		i.Error(response.JoinedMessages())
	}
	return nil
}

// Cancel moves a waiting item to CANCELED.
func (i *Item) Cancel() error {
	log.Debugf("Cancelling item %s", i.UID)
	if s := i.Status(); s != StatusWaiting {
		return illegalTransition(i.UID, "cancel", s)
	}
	now := time.Now()
	i.CancelledAt = &now
	return nil
}

// Complete closes a submitted item. The remote is queried for the final
// state; anything but DONE also marks the item as errored. The payload blob
// is erased last.
func (i *Item) Complete(ctx context.Context, client traffic.Client) error {
	log.Debugf("Completing item %s", i.UID)
	if s := i.Status(); s != StatusSubmitted {
		return illegalTransition(i.UID, "complete", s)
	}

	now := time.Now()
	i.CompletedAt = &now

	if i.JobID == nil {
		i.Error(fmt.Sprintf("item %s was submitted without a remote job id", i.UID))
		return nil
	}

	info, err := client.Status(ctx, *i.JobID)
	if err != nil {
		return err
	}
	if info.JobState != traffic.StateDone {
		i.Error(fmt.Sprintf("the job %s has been marked by the remote as %s", i.UID, info.JobState))
	}

	return i.payloads.Erase(i.UID)
}

// Error moves the item to the terminal error state.
func (i *Item) Error(message string) {
	log.Warnf("Error generated for item %s", i.UID) //nolint:errcheck
	if message != "" {
		log.Error(message) //nolint:errcheck
	}
	now := time.Now()
	i.ErrorAt = &now
}

// Payload reads the item payload blob.
func (i *Item) Payload() ([]byte, error) {
	return i.payloads.Get(i.UID)
}

// attachPayloadStore is called by the store when items are loaded from disk.
func (i *Item) attachPayloadStore(payloads *PayloadStore) {
	i.payloads = payloads
}
