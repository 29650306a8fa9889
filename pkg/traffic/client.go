// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package traffic is a thin, blocking client for the TomTom Traffic Stats
// HTTP API. Job payloads are opaque JSON blobs; this package only knows
// which endpoint a report type maps to and how to decode the envelopes.
package traffic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/macq/tomtom-api/pkg/config"
	"github.com/macq/tomtom-api/pkg/util/log"
)

const defaultRequestTimeout = 60 * time.Second

// Client is the set of remote operations the queue needs.
type Client interface {
	SubmitRoute(ctx context.Context, payload []byte) (*AnalysisResponse, error)
	SubmitArea(ctx context.Context, payload []byte) (*AnalysisResponse, error)
	SubmitDensity(ctx context.Context, payload []byte) (*AnalysisResponse, error)
	Status(ctx context.Context, jobID int64) (*StatusResponse, error)
	Search(ctx context.Context, filters SearchFilters) (*SearchResponse, error)
	CancelJob(ctx context.Context, jobID int64) error
	DeleteJob(ctx context.Context, jobID int64) error
}

// Submit dispatches a payload to the endpoint selected by its report type.
func Submit(ctx context.Context, c Client, rt ReportType, payload []byte) (*AnalysisResponse, error) {
	switch rt {
	case RouteAnalysis:
		return c.SubmitRoute(ctx, payload)
	case AreaAnalysis:
		return c.SubmitArea(ctx, payload)
	case TrafficDensity:
		return c.SubmitDensity(ctx, payload)
	}
	return nil, fmt.Errorf("invalid report type %q", rt)
}

// APIClient implements Client over HTTPS, optionally through a forward proxy.
type APIClient struct {
	baseURL string
	version int
	key     string

	httpClient *http.Client
}

var _ Client = (*APIClient)(nil)

// NewClient builds an APIClient from the configuration. The API key,
// version and base URL are required.
func NewClient(cfg *config.Config) (*APIClient, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("the client cannot be initialized without an API key (%s)", config.EnvVar(config.KeyAPIKey))
	}
	if cfg.Version == 0 {
		return nil, errors.New("the client cannot be initialized without an API version")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("the client cannot be initialized without a base url")
	}

	transport := &http.Transport{
		MaxIdleConns:        5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.Proxy != nil {
		proxyURL := &url.URL{
			Scheme: "http",
			User:   url.UserPassword(cfg.Proxy.Username, cfg.Proxy.Password),
			Host:   fmt.Sprintf("%s:%d", cfg.Proxy.IP, cfg.Proxy.Port),
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &APIClient{
		baseURL: cfg.BaseURL,
		version: cfg.Version,
		key:     cfg.Key,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultRequestTimeout,
		},
	}, nil
}

// endpoint builds a full trafficstats URL with the key query parameter.
func (c *APIClient) endpoint(path string, query url.Values) string {
	base := c.baseURL
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.key)
	return fmt.Sprintf("%s/traffic/trafficstats/%s?%s", base, path, query.Encode())
}

// do performs a request and applies the common response policy: 403 is
// ErrForbidden, 400 is decoded as the structured error form (falling back to
// the analysis form, which is returned as a normal body), anything else
// non-2xx is a RemoteError.
func (c *APIClient) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	log.Tracef("response %d from %s %s: %s", resp.StatusCode, method, req.URL.Path, string(data))

	switch {
	case resp.StatusCode == http.StatusForbidden:
		log.Error(string(data))
		return nil, ErrForbidden
	case resp.StatusCode == http.StatusBadRequest:
		var structured ErrorResponse
		if err := json.Unmarshal(data, &structured); err == nil && len(structured.Messages) > 0 {
			return nil, newBadRequestError(&structured)
		}
		// Some rejections come back in the analysis form, which still
		// carries the job id and messages. Hand it to the caller so the
		// failure can be recorded against the job.
		var analysis AnalysisResponse
		if err := json.Unmarshal(data, &analysis); err == nil && analysis.ResponseStatus != "" {
			return data, nil
		}
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(data)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

func (c *APIClient) submit(ctx context.Context, endpoint string, payload []byte) (*AnalysisResponse, error) {
	u := c.endpoint(fmt.Sprintf("%s/%d", endpoint, c.version), nil)
	data, err := c.do(ctx, http.MethodPost, u, payload)
	if err != nil {
		return nil, err
	}

	var response AnalysisResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, Body: string(data)}
	}
	return &response, nil
}

// SubmitRoute submits a route analysis job.
func (c *APIClient) SubmitRoute(ctx context.Context, payload []byte) (*AnalysisResponse, error) {
	return c.submit(ctx, string(RouteAnalysis), payload)
}

// SubmitArea submits an area analysis job.
func (c *APIClient) SubmitArea(ctx context.Context, payload []byte) (*AnalysisResponse, error) {
	return c.submit(ctx, string(AreaAnalysis), payload)
}

// SubmitDensity submits a traffic density job.
func (c *APIClient) SubmitDensity(ctx context.Context, payload []byte) (*AnalysisResponse, error) {
	return c.submit(ctx, string(TrafficDensity), payload)
}

// Status fetches the remote state of a job.
func (c *APIClient) Status(ctx context.Context, jobID int64) (*StatusResponse, error) {
	u := c.endpoint(fmt.Sprintf("status/%d/%d", c.version, jobID), nil)
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var response StatusResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, Body: string(data)}
	}
	return &response, nil
}

// SearchFilters narrows a job search. Zero values are omitted from the query.
type SearchFilters struct {
	PageIndex       *int
	PerPage         *int
	CreatedAfter    string // YYYY-MM-DD
	CreatedBefore   string
	CompletedAfter  string
	CompletedBefore string
	Name            string
	JobID           *int64
	Types           []ReportType
	States          []JobState
}

func (f SearchFilters) query() (url.Values, error) {
	if f.PageIndex != nil && *f.PageIndex < 0 {
		return nil, fmt.Errorf("pageIndex must be greater or equal to zero (%d given)", *f.PageIndex)
	}
	if f.PerPage != nil && *f.PerPage <= 0 {
		return nil, fmt.Errorf("perPage must be greater than zero (%d given)", *f.PerPage)
	}

	q := url.Values{}
	if f.PageIndex != nil {
		q.Set("pageIndex", strconv.Itoa(*f.PageIndex))
	}
	if f.PerPage != nil {
		q.Set("perPage", strconv.Itoa(*f.PerPage))
	}
	for key, val := range map[string]string{
		"createdAfter":    f.CreatedAfter,
		"createdBefore":   f.CreatedBefore,
		"completedAfter":  f.CompletedAfter,
		"completedBefore": f.CompletedBefore,
		"name":            f.Name,
	} {
		if val != "" {
			q.Set(key, val)
		}
	}
	if f.JobID != nil {
		q.Set("id", strconv.FormatInt(*f.JobID, 10))
	}
	if len(f.Types) > 0 {
		values := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			values = append(values, string(t))
		}
		q.Set("type", strings.Join(values, ","))
	}
	if len(f.States) > 0 {
		values := make([]string, 0, len(f.States))
		for _, s := range f.States {
			values = append(values, string(s))
		}
		q.Set("state", strings.Join(values, ","))
	}
	return q, nil
}

// Search fetches information about submitted jobs, optionally filtered.
func (c *APIClient) Search(ctx context.Context, filters SearchFilters) (*SearchResponse, error) {
	q, err := filters.query()
	if err != nil {
		return nil, err
	}

	u := c.endpoint(fmt.Sprintf("job/search/%d", c.version), q)
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var response SearchResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, Body: string(data)}
	}
	return &response, nil
}

// CancelJob asks the remote to stop processing a job.
func (c *APIClient) CancelJob(ctx context.Context, jobID int64) error {
	u := c.endpoint(fmt.Sprintf("status/%d/%d/cancel", c.version, jobID), nil)
	_, err := c.do(ctx, http.MethodPost, u, nil)
	return err
}

// DeleteJob removes a finished job report on the remote side.
func (c *APIClient) DeleteJob(ctx context.Context, jobID int64) error {
	u := c.endpoint(fmt.Sprintf("reports/%d/", jobID), nil)
	_, err := c.do(ctx, http.MethodDelete, u, nil)
	return err
}
