// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"errors"
	"fmt"
)

// ErrEmptyUpdate is returned by Update when no field is provided.
var ErrEmptyUpdate = errors.New("at least one attribute should be updated")

// ErrPayloadMissing is returned when the payload blob of a still-live item
// is gone from disk.
var ErrPayloadMissing = errors.New("payload file is missing")

// IllegalTransitionError is returned when a lifecycle operation is called on
// an item whose current status forbids it.
type IllegalTransitionError struct {
	UID  string
	Op   string
	From ItemStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot %s item %s in status %s", e.Op, e.UID, e.From.Display())
}

func illegalTransition(uid, op string, from ItemStatus) error {
	return &IllegalTransitionError{UID: uid, Op: op, From: from}
}
