package simconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nudtxiong/rbdcore/simconfig"
	"github.com/stretchr/testify/require"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := simconfig.Default()
	cfg.Bodies = []simconfig.BodyConfig{
		{ID: 0, Shape: "sphere", Mass: 1, Radius: 0.5, Pos: [3]float64{0, 2, 0}},
		{ID: 1, Shape: "plane", Normal: [3]float64{0, 1, 0}, Static: true},
	}

	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, simconfig.Save(path, cfg))

	loaded, err := simconfig.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Dt, loaded.Dt)
	require.Len(t, loaded.Bodies, 2)
	require.Equal(t, "sphere", loaded.Bodies[0].Shape)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := simconfig.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestBuildSceneFromDefault(t *testing.T) {
	cfg := simconfig.Default()
	cfg.Bodies = []simconfig.BodyConfig{
		{ID: 0, Shape: "sphere", Mass: 1, Radius: 0.5, Pos: [3]float64{0, 2, 0}},
		{ID: 1, Shape: "plane", Normal: [3]float64{0, 1, 0}, Static: true},
	}

	s, err := simconfig.BuildScene(cfg)
	require.NoError(t, err)
	require.NotNil(t, s)
}
