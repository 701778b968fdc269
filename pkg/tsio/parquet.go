package tsio

import (
	"bytes"
	"context"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// seriesSchema maps s onto an Arrow schema: the time column first, then one
// float64 column per channel. The time column name travels in the schema
// metadata.
func seriesSchema(s *series.Series) *arrow.Schema {
	timeType := arrow.DataType(arrow.PrimitiveTypes.Float64)
	if s.Kind == series.Temporal {
		timeType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}
	}
	fields := make([]arrow.Field, 0, len(s.Channels)+1)
	fields = append(fields, arrow.Field{Name: s.TimeColumn, Type: timeType})
	for _, c := range s.Channels {
		fields = append(fields, arrow.Field{Name: c.Name, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	md := arrow.NewMetadata([]string{TimeColumnKey}, []string{s.TimeColumn})
	return arrow.NewSchema(fields, &md)
}

// encodeParquet buffers the whole file, since the Parquet footer is only
// known once every row group is written.
func encodeParquet(w io.Writer, s *series.Series) error {
	pool := memory.NewGoAllocator()
	schema := seriesSchema(s)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	switch tb := b.Field(0).(type) {
	case *array.TimestampBuilder:
		for _, t := range s.Time {
			tb.Append(arrow.Timestamp(int64(t)))
		}
	case *array.Float64Builder:
		tb.AppendValues(s.Time, nil)
	}
	for i, c := range s.Channels {
		b.Field(i+1).(*array.Float64Builder).AppendValues(c.Values, nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pool))

	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create parquet writer")
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet row group")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close parquet writer")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet data")
	}
	return nil
}

// decodeParquet reads every numeric or timestamp column. Nulls become NaN.
func decodeParquet(r io.Reader, timeColumn string) (*series.Series, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parquet data")
	}
	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open parquet data")
	}
	defer fr.Close()

	if timeColumn == "" {
		timeColumn = metadataValue(fr, TimeColumnKey)
	}
	if timeColumn == "" {
		timeColumn = series.DefaultTimeColumn
	}

	pool := memory.NewGoAllocator()
	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create arrow reader")
	}
	tbl, err := ar.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read parquet table")
	}
	defer tbl.Release()

	schema := tbl.Schema()
	timeIdx := -1
	for i, f := range schema.Fields() {
		if f.Name == timeColumn {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidTimeColumn,
			"time column %q not found in parquet schema", timeColumn).
			WithDetail("schema", schema.String())
	}

	s := &series.Series{TimeColumn: timeColumn, Kind: series.Numeric}
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		values, temporal, err := columnValues(col.Data().Chunks())
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "unsupported parquet column").
				WithDetail("column", col.Name())
		}
		if i == timeIdx {
			s.Time = values
			if temporal {
				s.Kind = series.Temporal
			}
			continue
		}
		s.Channels = append(s.Channels, series.Channel{Name: col.Name(), Values: values})
	}

	s.Index = make([]int64, len(s.Time))
	for i := range s.Index {
		s.Index[i] = int64(i)
	}
	return s, nil
}

// columnValues flattens chunks into float64. Timestamps become Unix
// nanoseconds and report temporal.
func columnValues(chunks []arrow.Array) ([]float64, bool, error) {
	var out []float64
	temporal := false
	for _, chunk := range chunks {
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				out = append(out, math.NaN())
				continue
			}
			switch a := chunk.(type) {
			case *array.Float64:
				out = append(out, a.Value(i))
			case *array.Float32:
				out = append(out, float64(a.Value(i)))
			case *array.Int64:
				out = append(out, float64(a.Value(i)))
			case *array.Int32:
				out = append(out, float64(a.Value(i)))
			case *array.Timestamp:
				unit := a.DataType().(*arrow.TimestampType).Unit
				out = append(out, float64(a.Value(i).ToTime(unit).UnixNano()))
				temporal = true
			default:
				return nil, false, errors.Newf(errors.ErrorTypeInvalidArgument,
					"column type %s is not numeric", chunk.DataType())
			}
		}
	}
	return out, temporal, nil
}

func metadataValue(fr *file.Reader, key string) string {
	kv := fr.MetaData().KeyValueMetadata()
	keys, values := kv.Keys(), kv.Values()
	for i, k := range keys {
		if k == key {
			return values[i]
		}
	}
	return ""
}
