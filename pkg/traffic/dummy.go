// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package traffic

import (
	"context"
	"sync"
)

// DummyClient is a Client that never talks to the network. It hands out
// sequential job ids and serves canned status and search responses. Used by
// tests and by the daemon dry-run mode.
type DummyClient struct {
	mu sync.Mutex

	// NextJobID is the id returned by the next submission. Defaults to 1.
	NextJobID int64
	// JobState is the state reported by Status. Defaults to DONE.
	JobState JobState
	// ActiveJobs is the content served by Search.
	ActiveJobs []JobInfo
	// TotalOverride forces Search's totalElements when non-negative.
	TotalOverride int64

	// Submitted collects the report types submitted through this client.
	Submitted []ReportType
}

var _ Client = (*DummyClient)(nil)

// NewDummyClient returns a DummyClient with the default canned responses.
func NewDummyClient() *DummyClient {
	return &DummyClient{NextJobID: 1, JobState: StateDone, TotalOverride: -1}
}

func (d *DummyClient) submit(rt ReportType) (*AnalysisResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.NextJobID
	d.NextJobID++
	d.Submitted = append(d.Submitted, rt)
	return &AnalysisResponse{
		ResponseStatus: "OK",
		Messages:       []string{"This is a dummy response"},
		JobID:          &id,
	}, nil
}

// SubmitRoute implements Client.
func (d *DummyClient) SubmitRoute(context.Context, []byte) (*AnalysisResponse, error) {
	return d.submit(RouteAnalysis)
}

// SubmitArea implements Client.
func (d *DummyClient) SubmitArea(context.Context, []byte) (*AnalysisResponse, error) {
	return d.submit(AreaAnalysis)
}

// SubmitDensity implements Client.
func (d *DummyClient) SubmitDensity(context.Context, []byte) (*AnalysisResponse, error) {
	return d.submit(TrafficDensity)
}

// Status implements Client.
func (d *DummyClient) Status(_ context.Context, jobID int64) (*StatusResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return &StatusResponse{
		JobID:          jobID,
		JobState:       d.JobState,
		ResponseStatus: "OK",
	}, nil
}

// Search implements Client.
func (d *DummyClient) Search(context.Context, SearchFilters) (*SearchResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	total := int64(len(d.ActiveJobs))
	if d.TotalOverride >= 0 {
		total = d.TotalOverride
	}
	content := make([]JobInfo, len(d.ActiveJobs))
	copy(content, d.ActiveJobs)
	return &SearchResponse{
		Content:          content,
		TotalElements:    total,
		NumberOfElements: len(content),
		TotalPages:       1,
		Last:             true,
		First:            true,
		Size:             len(content),
	}, nil
}

// SubmittedCount returns how many submissions this client has accepted.
// Safe to call while another goroutine submits.
func (d *DummyClient) SubmittedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Submitted)
}

// CancelJob implements Client.
func (d *DummyClient) CancelJob(context.Context, int64) error { return nil }

// DeleteJob implements Client.
func (d *DummyClient) DeleteJob(context.Context, int64) error { return nil }
