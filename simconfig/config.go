// Package simconfig loads scene and tuning configuration from YAML,
// grounded on san-kum-dynsim/internal/config's Load/Save/DefaultConfig
// pattern, adapted from its ODE-model scalars to a scene of bodies and
// driver/stabilizer tuning knobs.
package simconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt                = 0.001
	DefaultDuration          = 1.0
	DefaultMinStepSize       = 1e-6
	DefaultContactDistThresh = 1e-3
	DefaultStabilizerAlpha   = 0.05
	DefaultStabilizerBeta    = 0.8
)

// Config is a simulation scene plus the driver/stabilizer tuning it runs
// with, the YAML-serializable counterpart to a sim.Simulator's runtime
// state.
type Config struct {
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`

	Driver     DriverConfig     `yaml:"driver"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`

	Bodies []BodyConfig `yaml:"bodies"`
	Joints []JointConfig `yaml:"joints"`
}

// DriverConfig mirrors driver.Options' YAML-facing fields.
type DriverConfig struct {
	MinStepSize       float64 `yaml:"min_step_size"`
	ContactDistThresh float64 `yaml:"contact_dist_thresh"`
	Eps               float64 `yaml:"eps"`
}

// StabilizerConfig mirrors stabilizer.Options' YAML-facing fields.
type StabilizerConfig struct {
	Eps      float64 `yaml:"eps"`
	Alpha    float64 `yaml:"alpha"`
	Beta     float64 `yaml:"beta"`
	MaxIters int     `yaml:"max_iters"`
}

// BodyConfig describes one free rigid body in a scene: shape, mass,
// initial pose, and whether it is static (mass 0).
type BodyConfig struct {
	ID     int        `yaml:"id"`
	Shape  string     `yaml:"shape"` // sphere | box | plane
	Mass   float64    `yaml:"mass"`
	Radius float64    `yaml:"radius,omitempty"`
	Extent [3]float64 `yaml:"extent,omitempty"` // box full side lengths
	Normal [3]float64 `yaml:"normal,omitempty"` // plane normal
	Pos    [3]float64 `yaml:"pos"`
	Static bool       `yaml:"static"`
}

// JointConfig describes one single-DOF revolute joint; ParentBody and
// ChildBody are the ids BuildScene gives the two links of the articulated
// body it builds for the entry.
type JointConfig struct {
	ID         int       `yaml:"id"`
	ParentBody int       `yaml:"parent_body"`
	ChildBody  int       `yaml:"child_body"`
	Axis       [3]float64 `yaml:"axis"`
	Lo         float64   `yaml:"lo"`
	Hi         float64   `yaml:"hi"`
}

// Default returns a Config with the driver/stabilizer defaults this core
// otherwise applies implicitly via Options.withDefaults, and an empty scene.
func Default() *Config {
	return &Config{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Driver: DriverConfig{
			MinStepSize:       DefaultMinStepSize,
			ContactDistThresh: DefaultContactDistThresh,
		},
		Stabilizer: StabilizerConfig{
			Alpha: DefaultStabilizerAlpha,
			Beta:  DefaultStabilizerBeta,
		},
	}
}

// Load reads and parses a scene/tuning file, starting from Default and
// overlaying whatever the file specifies.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save serializes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
