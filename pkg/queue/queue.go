// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

// Package queue implements the local submission queue: items waiting to
// become remote traffic-analysis jobs, persisted in a parquet table with
// one payload blob per item.
package queue

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/macq/tomtom-api/pkg/traffic"
	"github.com/macq/tomtom-api/pkg/util/log"
)

// Add enqueues a new request and persists it.
func Add(ctx context.Context, store *Store, name string, reportType traffic.ReportType, payload []byte, priority int64) (*Item, error) {
	item, err := NewItem(name, reportType, payload, priority, store.Payloads())
	if err != nil {
		return nil, err
	}
	// A duplicate uid means identical name and payload, so the blob the
	// constructor wrote is byte-identical to the queued one. Nothing to
	// undo on rejection.
	if err := store.Insert(item); err != nil {
		return nil, err
	}
	if err := store.Flush(ctx); err != nil {
		return nil, err
	}
	log.Infof("Queued item %s (%s) with priority %d", item.UID, item.Name, item.Priority)
	return item, nil
}

// Update edits a queued item and persists the change.
func Update(ctx context.Context, store *Store, uid string, opts UpdateOptions) (*Item, error) {
	item, err := store.Get(uid)
	if err != nil {
		return nil, err
	}
	if err := item.Update(opts); err != nil {
		return nil, err
	}
	if err := store.Flush(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

var statusColors = map[ItemStatus]*color.Color{
	StatusWaiting:   color.New(color.FgCyan),
	StatusSubmitted: color.New(color.FgYellow),
	StatusCompleted: color.New(color.FgGreen),
	StatusCanceled:  color.New(color.FgMagenta),
	StatusError:     color.New(color.FgRed),
}

func displayTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// RenderItems prints a human table of queue items.
func RenderItems(w io.Writer, items []*Item) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"UID", "Name", "Type", "Priority", "Status", "Created", "Submitted", "Job ID"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, item := range items {
		status := item.Status()
		jobID := ""
		if item.JobID != nil {
			jobID = fmt.Sprintf("%d", *item.JobID)
		}
		created := item.CreatedAt
		table.Append([]string{
			item.UID,
			item.Name,
			string(item.ReportType),
			fmt.Sprintf("%d", item.Priority),
			statusColors[status].Sprint(status.Display()),
			displayTime(&created),
			displayTime(item.SubmittedAt),
			jobID,
		})
	}
	table.Render()
}

// RenderDescription prints the queue summary produced by Store.Describe.
func RenderDescription(w io.Writer, description *Description) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Status", "Count"})
	table.SetBorder(false)
	for _, status := range AllStatuses {
		table.Append([]string{status.Display(), fmt.Sprintf("%d", description.Counts[status])})
	}
	table.Append([]string{"TOTAL", fmt.Sprintf("%d", description.Total)})
	table.Render()

	if description.Completion == nil {
		fmt.Fprintln(w, "No completed item yet.")
		return
	}

	stats := description.Completion
	fmt.Fprintf(w, "Completion time (minutes): min=%.1f mean=%.1f max=%.1f stddev=%.1f\n",
		stats.Min, stats.Mean, stats.Max, stats.StdDev)
}
