// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package traffic

import (
	"fmt"
	"strings"
)

// AnalysisResponse is the envelope returned by the three submission
// endpoints. A 2xx with ResponseStatus "error" is not a success; callers
// must check IsError.
type AnalysisResponse struct {
	ResponseStatus string   `json:"responseStatus"`
	Messages       []string `json:"messages"`
	JobID          *int64   `json:"jobId,omitempty"`
}

// IsError reports whether the remote flagged the submission as failed.
func (r *AnalysisResponse) IsError() bool {
	return strings.EqualFold(r.ResponseStatus, "error")
}

// JoinedMessages returns the remote messages as one string.
func (r *AnalysisResponse) JoinedMessages() string {
	return strings.Join(r.Messages, "; ")
}

// ErrorDetail is one entry of the structured 400 error form.
type ErrorDetail struct {
	Error         string `json:"error"`
	Field         string `json:"field"`
	RejectedValue string `json:"rejectedValue"`
}

func (d ErrorDetail) String() string {
	return fmt.Sprintf("%s (%s): %s", d.Error, d.Field, d.RejectedValue)
}

// ErrorResponse is the structured 400 error form.
type ErrorResponse struct {
	ResponseStatus string        `json:"responseStatus"`
	Messages       []ErrorDetail `json:"messages"`
}

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	JobID          int64    `json:"jobId"`
	JobState       JobState `json:"jobState"`
	ResponseStatus string   `json:"responseStatus"`
	URLs           []string `json:"urls,omitempty"`
}

// DisplayInfo is a one-line human summary of the status.
func (r *StatusResponse) DisplayInfo() string {
	return fmt.Sprintf("%d (%s)", r.JobID, r.JobState)
}

// JobInfo is one entry of the search endpoint response. The date fields are
// kept as the wire strings; the core never interprets them.
type JobInfo struct {
	JobID       int64    `json:"id"`
	Name        string   `json:"name"`
	JobType     string   `json:"type"`
	State       JobState `json:"state"`
	CreatedAt   string   `json:"createdAt"`
	CompletedAt string   `json:"completedAt,omitempty"`
}

// DisplayInfo is a two-line human summary of the job.
func (j *JobInfo) DisplayInfo() string {
	completed := j.CompletedAt
	if completed == "" {
		completed = "None"
	}
	return fmt.Sprintf("┌─ [%d] %s // %s\n└─ %s <%s ⟶ %s>",
		j.JobID, j.Name, j.State, j.JobType, j.CreatedAt, completed)
}

// Sort mirrors the Spring pageable sort record.
type Sort struct {
	Sorted   bool `json:"sorted"`
	Unsorted bool `json:"unsorted"`
	Empty    bool `json:"empty"`
}

// Pageable mirrors the Spring pageable record of the search response.
type Pageable struct {
	Sort       Sort  `json:"sort"`
	PageSize   int   `json:"pageSize"`
	PageNumber int   `json:"pageNumber"`
	Offset     int64 `json:"offset"`
	Paged      bool  `json:"paged"`
	Unpaged    bool  `json:"unpaged"`
}

// SearchResponse is the paged envelope returned by the search endpoint.
type SearchResponse struct {
	Content          []JobInfo `json:"content"`
	Pageable         Pageable  `json:"pageable"`
	TotalElements    int64     `json:"totalElements"`
	Last             bool      `json:"last"`
	TotalPages       int       `json:"totalPages"`
	First            bool      `json:"first"`
	Sort             Sort      `json:"sort"`
	NumberOfElements int       `json:"numberOfElements"`
	Size             int       `json:"size"`
	Number           int       `json:"number"`
	Empty            bool      `json:"empty"`
}

// JobIDs returns the set of job ids present in this page.
func (r *SearchResponse) JobIDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(r.Content))
	for _, j := range r.Content {
		ids[j.JobID] = struct{}{}
	}
	return ids
}
