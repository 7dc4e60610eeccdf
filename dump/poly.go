// Package dump writes particle snapshots as numbered .poly point clouds.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidSkip is returned for a non-positive dump cadence.
var ErrInvalidSkip = errors.New("dump skip must be > 0")

// WritePoly writes one point cloud. Points are numbered from 1.
func WritePoly(w io.Writer, points []r3.Vec) error {
	// bufio keeps the first write error and Flush returns it.
	bw := bufio.NewWriter(w)
	bw.WriteString("POINTS\n")

	buf := make([]byte, 0, 96)
	for i, p := range points {
		buf = strconv.AppendInt(buf[:0], int64(i+1), 10)
		buf = append(buf, ':', ' ')
		buf = strconv.AppendFloat(buf, p.X, 'f', -1, 64)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, p.Y, 'f', -1, 64)
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, p.Z, 'f', -1, 64)
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	bw.WriteString("POLYS\nEND\n")
	return bw.Flush()
}

// PolyWriter dumps a frame every skip steps to <dir>/<n>.poly, with n
// counting frames from 1.
type PolyWriter struct {
	dir    string
	skip   uint64
	frames int
	logger *slog.Logger
}

// NewPolyWriter creates dir if needed.
func NewPolyWriter(dir string, skip int, logger *slog.Logger) (*PolyWriter, error) {
	if skip <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSkip, skip)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dump dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolyWriter{dir: dir, skip: uint64(skip), logger: logger}, nil
}

// Due reports whether step is on the dump cadence.
func (p *PolyWriter) Due(step uint64) bool {
	return step%p.skip == 0
}

// Frames returns the number of frames written so far.
func (p *PolyWriter) Frames() int { return p.frames }

// Maybe writes a frame if step is due. points is only called when a frame
// is written, so callers can defer collecting positions.
func (p *PolyWriter) Maybe(step uint64, points func() []r3.Vec) (string, error) {
	if !p.Due(step) {
		return "", nil
	}
	return p.Write(points())
}

// Write writes the next frame unconditionally and returns its path.
func (p *PolyWriter) Write(points []r3.Vec) (string, error) {
	p.frames++
	path := filepath.Join(p.dir, strconv.Itoa(p.frames)+".poly")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating frame: %w", err)
	}
	if err := WritePoly(f, points); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	p.logger.Debug("frame written", "path", path, "points", len(points))
	return path, nil
}
