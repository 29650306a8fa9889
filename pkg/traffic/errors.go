// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package traffic

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrForbidden is returned on HTTP 403. Usually a bad or missing API key.
var ErrForbidden = errors.New("access forbidden: check that the correct API key is loaded")

// RemoteError wraps a non-2xx response that carries no usable envelope.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned HTTP %d: %s", e.StatusCode, e.Body)
}

// newBadRequestError joins the structured 400 messages into one error.
func newBadRequestError(resp *ErrorResponse) error {
	var result *multierror.Error
	for _, m := range resp.Messages {
		result = multierror.Append(result, errors.New(m.String()))
	}
	return fmt.Errorf("the request was rejected (HTTP 400): %w", result.ErrorOrNil())
}
