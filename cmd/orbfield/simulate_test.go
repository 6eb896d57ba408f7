package main

import (
	"testing"
	"time"

	"github.com/gekko3d/orbfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate(t *testing.T) {
	seed = 7
	cfg := orbfield.DefaultConfig()
	cfg.Count = 20

	o := simulateOptions{frames: 30, dt: time.Second / 60, width: 640, height: 480, orbit: true}
	energy, st, err := simulate(cfg, o)
	require.NoError(t, err)

	assert.Len(t, energy, 30)
	assert.GreaterOrEqual(t, st.MeanSpeed, float32(0))

	out := summary(cfg, o, st)
	assert.Contains(t, out, "orbs")
	assert.Contains(t, out, "20")
}

func TestSimulateEmptyField(t *testing.T) {
	cfg := orbfield.DefaultConfig()
	cfg.Count = 0

	energy, st, err := simulate(cfg, simulateOptions{frames: 5, dt: time.Second / 60, width: 100, height: 100})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, energy)
	assert.Zero(t, st.KineticEnergy)
}
