package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gekko3d/orbfield"
	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/pointer"
	"github.com/gekko3d/orbfield/sim"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

// headlessSurface is a fixed-size surface with nothing behind it.
type headlessSurface struct {
	w, h int
}

func (s headlessSurface) Size() (int, int)    { return s.w, s.h }
func (s headlessSurface) PixelRatio() float32 { return 1 }
func (s headlessSurface) Bounds() pointer.Rect {
	return pointer.Rect{Width: float32(s.w), Height: float32(s.h)}
}

type simulateOptions struct {
	frames        int
	dt            time.Duration
	width, height int
	orbit         bool
}

func newSimulateCmd() *cobra.Command {
	var o simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "step the field without a window and report energy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if o.frames <= 0 {
				return fmt.Errorf("--frames must be positive")
			}
			energy, last, err := simulate(cfg, o)
			if err != nil {
				return err
			}
			fmt.Println(asciigraph.Plot(energy,
				asciigraph.Height(10),
				asciigraph.Width(60),
				asciigraph.Caption("kinetic energy per frame")))
			fmt.Println(summary(cfg, o, last))
			return nil
		},
	}
	cmd.Flags().IntVar(&o.frames, "frames", 600, "frames to simulate")
	cmd.Flags().DurationVar(&o.dt, "dt", time.Second/60, "frame interval")
	cmd.Flags().IntVar(&o.width, "width", 1280, "virtual surface width")
	cmd.Flags().IntVar(&o.height, "height", 720, "virtual surface height")
	cmd.Flags().BoolVar(&o.orbit, "orbit", false, "move a virtual pointer in a circle to drive the leader")
	return cmd
}

// simulate runs the field through the same scene loop the window uses and
// samples the simulation after every frame.
func simulate(cfg orbfield.Config, o simulateOptions) ([]float64, sim.Stats, error) {
	log := newLogger()
	now := time.Unix(0, 0)
	loop := clock.NewLoop(now)
	router := pointer.NewRouter(nil, log)
	surface := headlessSurface{w: o.width, h: o.height}

	field, err := orbfield.New(surface, cfg,
		orbfield.WithLogger(log),
		orbfield.WithLoop(loop),
		orbfield.WithRouter(router),
		orbfield.WithRand(newRand()),
	)
	if err != nil {
		return nil, sim.Stats{}, err
	}
	defer field.Dispose()

	field.Scene().SetIntersecting(true)
	energy := make([]float64, 0, o.frames)
	var st sim.Stats
	for i := 0; i < o.frames; i++ {
		if o.orbit {
			a := 2 * math.Pi * float64(i) / 240
			x := float64(o.width) * (0.5 + 0.3*math.Cos(a))
			y := float64(o.height) * (0.5 + 0.3*math.Sin(a))
			router.PointerMove(float32(x), float32(y))
		}
		now = now.Add(o.dt)
		loop.Pump(now)
		st = field.Mesh().Sim.Stats()
		energy = append(energy, float64(st.KineticEnergy))
	}
	return energy, st, nil
}

func summary(cfg orbfield.Config, o simulateOptions, st sim.Stats) string {
	rows := [][2]string{
		{"orbs", fmt.Sprint(cfg.Count)},
		{"frames", fmt.Sprint(o.frames)},
		{"dt", o.dt.String()},
		{"kinetic energy", fmt.Sprintf("%.5f", st.KineticEnergy)},
		{"mean speed", fmt.Sprintf("%.5f", st.MeanSpeed)},
		{"max speed", fmt.Sprintf("%.5f", st.MaxSpeed)},
		{"max overlap", fmt.Sprintf("%.5f", st.MaxOverlap)},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("orbfield simulate"))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(r[0]))
		b.WriteString(valueStyle.Render(r[1]))
	}
	return panelStyle.Render(b.String())
}
