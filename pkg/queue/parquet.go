// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/spf13/afero"

	"github.com/macq/tomtom-api/pkg/traffic"
)

// queueSchema is the on-disk layout of db.parquet. Statuses are not stored,
// only the timestamps they are derived from.
var queueSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "uid", Type: arrow.BinaryTypes.String},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "report_type", Type: arrow.BinaryTypes.String},
		{Name: "payload_link", Type: arrow.BinaryTypes.String},
		{Name: "priority", Type: arrow.PrimitiveTypes.Int64},
		{Name: "created", Type: arrow.FixedWidthTypes.Timestamp_ns},
		{Name: "updated", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "submitted", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "completed", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "cancelled", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "error", Type: arrow.FixedWidthTypes.Timestamp_ns, Nullable: true},
		{Name: "tomtom_job_id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	},
	nil,
)

func appendTimestamp(b *array.TimestampBuilder, t *time.Time) {
	if t == nil {
		b.AppendNull()
		return
	}
	b.Append(arrow.Timestamp(t.UnixNano()))
}

func buildRecord(items []*Item) arrow.Record {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, queueSchema)
	defer builder.Release()

	uids := builder.Field(0).(*array.StringBuilder)
	names := builder.Field(1).(*array.StringBuilder)
	reportTypes := builder.Field(2).(*array.StringBuilder)
	payloadLinks := builder.Field(3).(*array.StringBuilder)
	priorities := builder.Field(4).(*array.Int64Builder)
	created := builder.Field(5).(*array.TimestampBuilder)
	updated := builder.Field(6).(*array.TimestampBuilder)
	submitted := builder.Field(7).(*array.TimestampBuilder)
	completed := builder.Field(8).(*array.TimestampBuilder)
	cancelled := builder.Field(9).(*array.TimestampBuilder)
	errored := builder.Field(10).(*array.TimestampBuilder)
	jobIDs := builder.Field(11).(*array.Int64Builder)

	for _, item := range items {
		uids.Append(item.UID)
		names.Append(item.Name)
		reportTypes.Append(string(item.ReportType))
		payloadLinks.Append(item.PayloadLink)
		priorities.Append(item.Priority)
		created.Append(arrow.Timestamp(item.CreatedAt.UnixNano()))
		appendTimestamp(updated, item.UpdatedAt)
		appendTimestamp(submitted, item.SubmittedAt)
		appendTimestamp(completed, item.CompletedAt)
		appendTimestamp(cancelled, item.CancelledAt)
		appendTimestamp(errored, item.ErrorAt)
		if item.JobID == nil {
			jobIDs.AppendNull()
		} else {
			jobIDs.Append(*item.JobID)
		}
	}

	return builder.NewRecord()
}

// writeParquet serializes items to the target path. The write is atomic: a
// temp file in the same directory is renamed over the target.
func writeParquet(fs afero.Fs, dir, target string, items []*Item) error {
	record := buildRecord(items)
	defer record.Release()

	tmp, err := afero.TempFile(fs, dir, "db.*.parquet.tmp")
	if err != nil {
		return err
	}

	props := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Snappy),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(queueSchema, tmp, props, arrowProps)
	if err != nil {
		tmp.Close()
		fs.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		fs.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("writing queue table: %w", err)
	}
	// Close also closes the underlying file.
	if err := writer.Close(); err != nil {
		fs.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("closing parquet writer: %w", err)
	}

	if err := fs.Rename(tmp.Name(), target); err != nil {
		fs.Remove(tmp.Name()) //nolint:errcheck
		return err
	}
	return nil
}

func timestampValue(col *arrow.Column, chunk, row int) *time.Time {
	arr := col.Data().Chunks()[chunk].(*array.Timestamp)
	if arr.IsNull(row) {
		return nil
	}
	t := time.Unix(0, int64(arr.Value(row))).UTC()
	return &t
}

// readParquet loads the queue table from the given path. A missing file
// yields an empty slice.
func readParquet(ctx context.Context, fs afero.Fs, path string) ([]*Item, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	reader, err := pfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening queue table %s: %w", path, err)
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("reading queue table %s: %w", path, err)
	}
	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("decoding queue table %s: %w", path, err)
	}
	defer table.Release()

	return tableToItems(table)
}

func tableToItems(table arrow.Table) ([]*Item, error) {
	columns := make(map[string]*arrow.Column, int(table.NumCols()))
	for i := 0; i < int(table.NumCols()); i++ {
		col := table.Column(i)
		columns[col.Name()] = col
	}
	for _, field := range queueSchema.Fields() {
		if _, ok := columns[field.Name]; !ok {
			return nil, fmt.Errorf("queue table is missing column %q", field.Name)
		}
	}

	items := make([]*Item, 0, int(table.NumRows()))
	for chunk := range columns["uid"].Data().Chunks() {
		uids := columns["uid"].Data().Chunks()[chunk].(*array.String)
		names := columns["name"].Data().Chunks()[chunk].(*array.String)
		reportTypes := columns["report_type"].Data().Chunks()[chunk].(*array.String)
		payloadLinks := columns["payload_link"].Data().Chunks()[chunk].(*array.String)
		priorities := columns["priority"].Data().Chunks()[chunk].(*array.Int64)
		jobIDs := columns["tomtom_job_id"].Data().Chunks()[chunk].(*array.Int64)

		for row := 0; row < uids.Len(); row++ {
			reportType, err := traffic.ParseReportType(reportTypes.Value(row))
			if err != nil {
				return nil, fmt.Errorf("row %d of queue table: %w", row, err)
			}

			item := &Item{
				UID:         uids.Value(row),
				Name:        names.Value(row),
				ReportType:  reportType,
				PayloadLink: payloadLinks.Value(row),
				Priority:    priorities.Value(row),
				UpdatedAt:   timestampValue(columns["updated"], chunk, row),
				SubmittedAt: timestampValue(columns["submitted"], chunk, row),
				CompletedAt: timestampValue(columns["completed"], chunk, row),
				CancelledAt: timestampValue(columns["cancelled"], chunk, row),
				ErrorAt:     timestampValue(columns["error"], chunk, row),
			}
			if created := timestampValue(columns["created"], chunk, row); created != nil {
				item.CreatedAt = *created
			}
			if !jobIDs.IsNull(row) {
				id := jobIDs.Value(row)
				item.JobID = &id
			}
			items = append(items, item)
		}
	}
	return items, nil
}
