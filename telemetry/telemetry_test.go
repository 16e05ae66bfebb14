package telemetry_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nudtxiong/rbdcore/telemetry"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.dat")

	w, err := telemetry.Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(0.0, 1.5))
	require.NoError(t, w.Write(0.1, 1.4))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "0 1.5", lines[0])
}

func TestOpenAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.dat")

	w1, err := telemetry.Open(path)
	require.NoError(t, err)
	require.NoError(t, w1.Write(0, 1))
	require.NoError(t, w1.Close())

	w2, err := telemetry.Open(path)
	require.NoError(t, err)
	require.NoError(t, w2.Write(1, 2))
	require.NoError(t, w2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
}

func TestRecorderSamplesBothSeries(t *testing.T) {
	dir := t.TempDir()

	r, err := telemetry.OpenRecorder(dir)
	require.NoError(t, err)
	require.NoError(t, r.Sample(0, 10.0, -0.01))
	require.NoError(t, r.Close())

	energy, err := os.ReadFile(filepath.Join(dir, "energy.dat"))
	require.NoError(t, err)
	require.Contains(t, string(energy), "10")

	cvio, err := os.ReadFile(filepath.Join(dir, "cvio.dat"))
	require.NoError(t, err)
	require.Contains(t, string(cvio), "-0.01")
}
