// Package telemetry writes append-only diagnostic series a long-running
// simulation accumulates: energy (whatever energy value the caller samples)
// and constraint-violation (min gap) samples, one line per sample. Grounded on
// viamrobotics-rdk/services/datamanager/datacapture's File type — a
// mutex-guarded bufio.Writer over an os.File with an explicit Sync flush —
// simplified here from its protobuf-framed records to plain text lines
// since this package has no wire-format counterpart to preserve.
package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// Writer appends timestamped scalar samples to a file, one "time value\n"
// record per Write call.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// Open creates (or appends to) the file at path for writing.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Writer{file: f, writer: bufio.NewWriter(f)}, nil
}

// Write appends one (time, value) sample.
func (w *Writer) Write(t, value float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.writer, "%.9g %.9g\n", t, value)
	return err
}

// Flush pushes buffered samples to disk without closing the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Flush()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Recorder bundles the two series spec.md §6 names: energy.dat (the energy
// value passed to Sample; cmd/simcore passes kinetic energy) and cvio.dat
// (constraint-violation / min-gap).
type Recorder struct {
	Energy    *Writer
	Violation *Writer
}

// OpenRecorder opens energy.dat and cvio.dat under dir.
func OpenRecorder(dir string) (*Recorder, error) {
	energy, err := Open(dir + "/energy.dat")
	if err != nil {
		return nil, err
	}
	cvio, err := Open(dir + "/cvio.dat")
	if err != nil {
		energy.Close()
		return nil, err
	}
	return &Recorder{Energy: energy, Violation: cvio}, nil
}

// Sample records one (time, energy, minGap) triple across both series.
func (r *Recorder) Sample(t, energy, minGap float64) error {
	if err := r.Energy.Write(t, energy); err != nil {
		return err
	}
	return r.Violation.Write(t, minGap)
}

// Close closes both underlying files.
func (r *Recorder) Close() error {
	err1 := r.Energy.Close()
	err2 := r.Violation.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
