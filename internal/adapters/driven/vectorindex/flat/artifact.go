package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// Ensure FileArtifact implements the interface.
var _ driven.IndexArtifact = (*FileArtifact)(nil)

// File layout (v1), all integers little-endian:
//
//	0..7    magic "RAGVEC01"
//	8       metric code
//	9..12   dimension (uint32)
//	13..20  count (uint64)
//	21..    count*dimension float32 values
//	last 4  CRC-32 (IEEE) of everything before it
const headerSize = 21

// MaxDimension bounds the dimension accepted from an artifact header.
const MaxDimension = 1 << 16

var fileMagic = [8]byte{'R', 'A', 'G', 'V', 'E', 'C', '0', '1'}

var metricCodes = map[domain.Metric]byte{
	domain.MetricCosine:       1,
	domain.MetricInnerProduct: 2,
}

// FileArtifact stores an index snapshot in a single binary file.
type FileArtifact struct {
	path string
}

// NewFileArtifact creates an artifact at path. The file is not touched until Save.
func NewFileArtifact(path string) *FileArtifact {
	return &FileArtifact{path: path}
}

// Location returns the artifact path.
func (a *FileArtifact) Location() string {
	return a.path
}

// Save writes the snapshot to a temporary file and renames it into place.
func (a *FileArtifact) Save(_ context.Context, s driven.IndexSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (a *FileArtifact) Load(_ context.Context) (driven.IndexSnapshot, error) {
	f, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return driven.IndexSnapshot{}, nil
	}
	if err != nil {
		return driven.IndexSnapshot{}, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return driven.IndexSnapshot{}, fmt.Errorf("stat index: %w", err)
	}
	return decode(f, info.Size())
}

// Remove deletes the artifact file.
func (a *FileArtifact) Remove(_ context.Context) error {
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove index: %w", err)
	}
	return nil
}

// Encode writes a snapshot in the v1 layout.
func Encode(w io.Writer, s driven.IndexSnapshot) error {
	code, ok := metricCodes[s.Metric]
	if !ok {
		return fmt.Errorf("encode index: unknown metric %q", s.Metric)
	}
	if s.Dimension > MaxDimension {
		return fmt.Errorf("encode index: dimension %d exceeds %d", s.Dimension, MaxDimension)
	}
	for _, v := range s.Vectors {
		if len(v) != s.Dimension {
			return &domain.DimensionMismatchError{Expected: s.Dimension, Got: len(v)}
		}
	}

	sum := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, sum))

	var header [headerSize]byte
	copy(header[:8], fileMagic[:])
	header[8] = code
	binary.LittleEndian.PutUint32(header[9:13], uint32(s.Dimension))
	binary.LittleEndian.PutUint64(header[13:21], uint64(len(s.Vectors)))
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}

	var buf [4]byte
	for _, v := range s.Vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("write index vectors: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write index vectors: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:], sum.Sum32())
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write index checksum: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (driven.IndexSnapshot, error) {
	return decode(r, -1)
}

// decode reads a snapshot. A non-negative size is the total input length and
// must match the length the header implies before any vector is allocated.
func decode(r io.Reader, size int64) (driven.IndexSnapshot, error) {
	sum := crc32.NewIEEE()
	br := io.TeeReader(bufio.NewReader(r), sum)

	var header [headerSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: short header: %v", ErrCorruptArtifact, err)
	}
	var magic [8]byte
	copy(magic[:], header[:8])
	if magic != fileMagic {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: bad magic", ErrCorruptArtifact)
	}

	metric, ok := metricFromCode(header[8])
	if !ok {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: unknown metric code %d", ErrCorruptArtifact, header[8])
	}
	rawDim := binary.LittleEndian.Uint32(header[9:13])
	if rawDim > MaxDimension {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: dimension %d exceeds %d", ErrCorruptArtifact, rawDim, MaxDimension)
	}
	dim := int(rawDim)
	count := binary.LittleEndian.Uint64(header[13:21])
	if count > 0 && dim == 0 {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: zero dimension with %d vectors", ErrCorruptArtifact, count)
	}
	if size >= 0 {
		want, ok := artifactSize(dim, count)
		if !ok || want != size {
			return driven.IndexSnapshot{}, fmt.Errorf("%w: file is %d bytes, header claims %d vectors of dimension %d",
				ErrCorruptArtifact, size, count, dim)
		}
	}

	vectors := make([][]float32, 0, min(count, 1<<16))
	var buf [4]byte
	for i := uint64(0); i < count; i++ {
		v := make([]float32, dim)
		for j := range v {
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return driven.IndexSnapshot{}, fmt.Errorf("%w: truncated at vector %d: %v", ErrCorruptArtifact, i, err)
			}
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))
		}
		vectors = append(vectors, v)
	}

	want := sum.Sum32()
	if _, err := io.ReadFull(br, buf[:]); err != nil {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: missing checksum", ErrCorruptArtifact)
	}
	if got := binary.LittleEndian.Uint32(buf[:]); got != want {
		return driven.IndexSnapshot{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)
	}

	return driven.IndexSnapshot{Metric: metric, Dimension: dim, Vectors: vectors}, nil
}

// artifactSize returns the file length for count vectors of dim values.
// It reports false when the length does not fit in an int64.
func artifactSize(dim int, count uint64) (int64, bool) {
	const fixed = headerSize + 4
	if dim == 0 || count == 0 {
		return fixed, true
	}
	perVector := uint64(dim) * 4
	if count > (math.MaxInt64-fixed)/perVector {
		return 0, false
	}
	return int64(count*perVector) + fixed, true
}

func metricFromCode(code byte) (domain.Metric, bool) {
	for m, c := range metricCodes {
		if c == code {
			return m, true
		}
	}
	return "", false
}
