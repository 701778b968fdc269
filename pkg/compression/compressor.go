// Package compression wraps series files in stream codecs.
//
// The codec is chosen from the file name: a trailing ".gz", ".zst", ".lz4",
// ".sz" (framed snappy) or ".s2" selects the algorithm and the remaining
// name selects the data format.
//
//	alg, base := compression.FromPath("run.parquet.zst") // Zstd, "run.parquet"
//	w, err := compression.NewWriter(f, alg, compression.Default)
//	...
//	defer w.Close()
//
// Compressor bundles an algorithm and level for whole-buffer and
// stream-to-stream use; package tsio reads and writes series files through
// it. It is safe for concurrent use.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/timescale-go/timescale/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

var suffixes = map[string]Algorithm{
	".gz":  Gzip,
	".zst": Zstd,
	".lz4": LZ4,
	".sz":  Snappy,
	".s2":  S2,
}

// Algorithms returns every supported algorithm except None.
func Algorithms() []Algorithm {
	return []Algorithm{Gzip, Snappy, LZ4, Zstd, S2}
}

// FromPath returns the algorithm named by the file suffix and the path with
// that suffix removed. Paths without a known suffix return None and the path
// unchanged.
func FromPath(path string) (Algorithm, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if alg, ok := suffixes[ext]; ok {
		return alg, path[:len(path)-len(ext)]
	}
	return None, path
}

// Extension returns the file suffix for alg, empty for None.
func (a Algorithm) Extension() string {
	for ext, alg := range suffixes {
		if alg == a {
			return ext
		}
	}
	return ""
}

// Valid reports whether a is one of Algorithms.
func (a Algorithm) Valid() bool {
	return a.Extension() != ""
}

// ParseAlgorithm accepts an algorithm name or its file suffix.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(None) {
		return None, nil
	}
	if alg, ok := suffixes["."+strings.TrimPrefix(s, ".")]; ok {
		return alg, nil
	}
	for _, alg := range Algorithms() {
		if string(alg) == s {
			return alg, nil
		}
	}
	return None, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", s)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w in an encoder for alg. Closing the returned writer
// flushes the encoder but does not close w.
func NewWriter(w io.Writer, alg Algorithm, level Level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		zw, err := gzip.NewWriterLevel(w, mapGzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to configure gzip writer")
		}
		return zw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w, s2WriterOptions(level)...), nil
	case LZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to configure lz4 writer")
		}
		return zw, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to configure zstd writer")
		}
		return enc, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", alg)
	}
}

// NewReader wraps r in a decoder for alg. Closing the returned reader
// releases decoder resources but does not close r.
func NewReader(r io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid gzip stream")
		}
		return zr, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "invalid zstd stream")
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", alg)
	}
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)
	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)
	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error
	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error
	// Algorithm returns the compression algorithm.
	Algorithm() Algorithm
	// Level returns the compression level.
	Level() Level
}

// Config configures a compressor.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm" json:"algorithm"`
	Level     Level     `yaml:"level" json:"level"`
}

// DefaultConfig returns zstd at the default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: Zstd, Level: Default}
}

// NewCompressor creates a compressor for config.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Level == 0 {
		config.Level = Default
	}
	if config.Algorithm != None && !config.Algorithm.Valid() {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported compression algorithm: %s", config.Algorithm)
	}
	return &streamCompressor{algorithm: config.Algorithm, level: config.Level}, nil
}

type streamCompressor struct {
	algorithm Algorithm
	level     Level
	buffers   sync.Pool
}

func (c *streamCompressor) Algorithm() Algorithm { return c.algorithm }
func (c *streamCompressor) Level() Level         { return c.level }

func (c *streamCompressor) buffer() *bytes.Buffer {
	if b, ok := c.buffers.Get().(*bytes.Buffer); ok {
		b.Reset()
		return b
	}
	return new(bytes.Buffer)
}

// detach copies the buffer contents out before it goes back to the pool.
func (c *streamCompressor) detach(b *bytes.Buffer) []byte {
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	c.buffers.Put(b)
	return out
}

func (c *streamCompressor) Compress(data []byte) ([]byte, error) {
	b := c.buffer()
	if err := c.CompressStream(b, bytes.NewReader(data)); err != nil {
		c.buffers.Put(b)
		return nil, err
	}
	return c.detach(b), nil
}

func (c *streamCompressor) Decompress(data []byte) ([]byte, error) {
	b := c.buffer()
	if err := c.DecompressStream(b, bytes.NewReader(data)); err != nil {
		c.buffers.Put(b)
		return nil, err
	}
	return c.detach(b), nil
}

func (c *streamCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w, err := NewWriter(dst, c.algorithm, c.level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("%s compression failed", c.algorithm))
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("%s compression failed", c.algorithm))
	}
	return nil
}

func (c *streamCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r, err := NewReader(src, c.algorithm)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := io.Copy(dst, r); err != nil { //nolint:gosec // inputs are local series files
		return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("%s decompression failed", c.algorithm))
	}
	return nil
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Better:
		return lz4.Level7
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func s2WriterOptions(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}
