// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"fmt"
	"strings"
)

// ItemStatus is the derived status of a queue item. It is never stored;
// it is always computed from the item timestamps.
type ItemStatus string

const (
	// StatusWaiting means the item has not been submitted yet.
	StatusWaiting ItemStatus = "waiting"
	// StatusSubmitted means the remote accepted the submission.
	StatusSubmitted ItemStatus = "submitted"
	// StatusCompleted means the daemon observed remote completion.
	StatusCompleted ItemStatus = "completed"
	// StatusCanceled means the user cancelled the item before submission.
	StatusCanceled ItemStatus = "canceled"
	// StatusError is the terminal error state.
	StatusError ItemStatus = "error"
)

// AllStatuses lists every item status.
var AllStatuses = []ItemStatus{
	StatusWaiting, StatusSubmitted, StatusCompleted, StatusCanceled, StatusError,
}

// ParseItemStatus converts a string into an ItemStatus, ignoring case.
func ParseItemStatus(s string) (ItemStatus, error) {
	status := ItemStatus(strings.ToLower(s))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid queue item status %q", s)
}

// Display returns the status in upper case for human output.
func (s ItemStatus) Display() string { return strings.ToUpper(string(s)) }
