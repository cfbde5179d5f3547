// Package snapshot reads and writes the columnar snapshot files the range
// query layer serves from. One parquet file per snapshot relation, schema
// matching the corresponding table.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/models"
)

var dailySchema = arrow.NewSchema([]arrow.Field{
	{Name: "record_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "location_dir_id", Type: arrow.BinaryTypes.String},
	{Name: "location_name", Type: arrow.BinaryTypes.String},
	{Name: "direction", Type: arrow.BinaryTypes.String},
	{Name: "linear_name_full", Type: arrow.BinaryTypes.String},
	{Name: "side_street", Type: arrow.BinaryTypes.String},
	{Name: "dt", Type: arrow.BinaryTypes.String},
	{Name: "daily_volume", Type: arrow.PrimitiveTypes.Int64},
}, nil)

var fifteenMinSchema = arrow.NewSchema([]arrow.Field{
	{Name: "record_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "location_dir_id", Type: arrow.BinaryTypes.String},
	{Name: "datetime_bin", Type: arrow.BinaryTypes.String},
	{Name: "bin_volume", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteDailyCounts writes the daily snapshot. An existing file is left
// alone unless overwrite is set.
func WriteDailyCounts(path string, rows []models.DailyCount, overwrite bool) error {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, dailySchema)
	defer builder.Release()

	for _, row := range rows {
		builder.Field(0).(*array.Int64Builder).Append(row.RecordID)
		builder.Field(1).(*array.StringBuilder).Append(row.LocationDirID)
		builder.Field(2).(*array.StringBuilder).Append(row.LocationName)
		builder.Field(3).(*array.StringBuilder).Append(row.Direction)
		builder.Field(4).(*array.StringBuilder).Append(row.LinearNameFull)
		builder.Field(5).(*array.StringBuilder).Append(row.SideStreet)
		builder.Field(6).(*array.StringBuilder).Append(row.Dt)
		builder.Field(7).(*array.Int64Builder).Append(row.DailyVolume)
	}

	return writeParquet(path, dailySchema, builder, overwrite)
}

// WriteFifteenMinCounts writes the 15-minute snapshot. An existing file
// is left alone unless overwrite is set.
func WriteFifteenMinCounts(path string, rows []models.FifteenMinCount, overwrite bool) error {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, fifteenMinSchema)
	defer builder.Release()

	for _, row := range rows {
		builder.Field(0).(*array.Int64Builder).Append(row.RecordID)
		builder.Field(1).(*array.StringBuilder).Append(row.LocationDirID)
		builder.Field(2).(*array.StringBuilder).Append(row.DatetimeBin)
		builder.Field(3).(*array.Int64Builder).Append(row.BinVolume)
	}

	return writeParquet(path, fifteenMinSchema, builder, overwrite)
}

func writeParquet(path string, schema *arrow.Schema, builder *array.RecordBuilder, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	rec := builder.NewRecord()
	defer rec.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	if err := pqarrow.WriteTable(table, f, table.NumRows(), props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadDailyCounts loads the daily snapshot back into rows, preserving the
// order they were written in.
func ReadDailyCounts(ctx context.Context, path string) ([]models.DailyCount, error) {
	table, err := readParquet(ctx, path)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	recordIDs := int64Column(table, 0)
	locationIDs := stringColumn(table, 1)
	names := stringColumn(table, 2)
	directions := stringColumn(table, 3)
	linearNames := stringColumn(table, 4)
	sideStreets := stringColumn(table, 5)
	dts := stringColumn(table, 6)
	volumes := int64Column(table, 7)

	rows := make([]models.DailyCount, len(recordIDs))
	for i := range rows {
		rows[i] = models.DailyCount{
			RecordID:       recordIDs[i],
			LocationDirID:  locationIDs[i],
			LocationName:   names[i],
			Direction:      directions[i],
			LinearNameFull: linearNames[i],
			SideStreet:     sideStreets[i],
			Dt:             dts[i],
			DailyVolume:    volumes[i],
		}
	}
	return rows, nil
}

// ReadFifteenMinCounts loads the 15-minute snapshot back into rows.
func ReadFifteenMinCounts(ctx context.Context, path string) ([]models.FifteenMinCount, error) {
	table, err := readParquet(ctx, path)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	recordIDs := int64Column(table, 0)
	locationIDs := stringColumn(table, 1)
	bins := stringColumn(table, 2)
	volumes := int64Column(table, 3)

	rows := make([]models.FifteenMinCount, len(recordIDs))
	for i := range rows {
		rows[i] = models.FifteenMinCount{
			RecordID:      recordIDs[i],
			LocationDirID: locationIDs[i],
			DatetimeBin:   bins[i],
			BinVolume:     volumes[i],
		}
	}
	return rows, nil
}

func readParquet(ctx context.Context, path string) (arrow.Table, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return table, nil
}

func int64Column(table arrow.Table, idx int) []int64 {
	out := make([]int64, 0, table.NumRows())
	for _, chunk := range table.Column(idx).Data().Chunks() {
		arr := chunk.(*array.Int64)
		out = append(out, arr.Int64Values()...)
	}
	return out
}

func stringColumn(table arrow.Table, idx int) []string {
	out := make([]string, 0, table.NumRows())
	for _, chunk := range table.Column(idx).Data().Chunks() {
		arr := chunk.(*array.String)
		for i := 0; i < arr.Len(); i++ {
			out = append(out, arr.Value(i))
		}
	}
	return out
}
