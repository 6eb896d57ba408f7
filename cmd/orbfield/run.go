package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gekko3d/orbfield"
	"github.com/gekko3d/orbfield/clock"
	"github.com/gekko3d/orbfield/platform"
	"github.com/gekko3d/orbfield/pointer"
	"github.com/gekko3d/orbfield/render"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"
)

const countStep = 25

func newRunCmd() *cobra.Command {
	var (
		width, height int
		title         string
		meshPath      string
		touch         bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "open a window with the orb field",
		Long: "Open a window with the orb field. The first orb follows the cursor.\n" +
			"Keys: space pauses, +/- change the orb count, esc quits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWindow(cfg, width, height, title, meshPath, touch)
		},
	}
	cmd.Flags().IntVar(&width, "width", 1280, "window width")
	cmd.Flags().IntVar(&height, "height", 720, "window height")
	cmd.Flags().StringVar(&title, "title", "orbfield", "window title")
	cmd.Flags().StringVar(&meshPath, "mesh", "", "glTF file to draw each orb with")
	cmd.Flags().BoolVar(&touch, "touch", false, "treat left-button drags as touches")
	return cmd
}

func runWindow(cfg orbfield.Config, width, height int, title, meshPath string, touch bool) error {
	log := newLogger()

	opts := []orbfield.Option{orbfield.WithLogger(log), orbfield.WithRand(newRand())}
	if meshPath != "" {
		geom, err := render.LoadGLTFGeometry(meshPath)
		if err != nil {
			return err
		}
		log.Infof("mesh %s: %d vertices", meshPath, len(geom.Vertices))
		opts = append(opts, orbfield.WithGeometry(geom))
	}

	win, err := platform.NewWindow(width, height, title)
	if err != nil {
		return err
	}
	defer win.Destroy()

	gpu, err := platform.NewGPU(win)
	if err != nil {
		return err
	}
	defer gpu.Release()

	renderer, err := render.NewGPU(gpu, log)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	loop := clock.NewLoop(time.Now())
	source := pointer.NewGLFWSource(win.GLFW)
	source.EmulateTouch = touch
	router := pointer.NewRouter(source, log)

	opts = append(opts,
		orbfield.WithLoop(loop),
		orbfield.WithRouter(router),
		orbfield.WithRenderer(renderer),
	)
	field, err := orbfield.New(win, cfg, opts...)
	if err != nil {
		renderer.Dispose()
		return err
	}
	defer field.Dispose()

	win.Observe(field.Scene())
	defer win.Unobserve()

	win.GLFW.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyEscape:
			win.Close()
		case glfw.KeySpace:
			field.TogglePause()
			log.Infof("paused: %v", field.Paused())
		case glfw.KeyEqual, glfw.KeyKPAdd:
			field.SetCount(field.Mesh().Count() + countStep)
			log.Infof("count: %d", field.Mesh().Count())
		case glfw.KeyMinus, glfw.KeyKPSubtract:
			field.SetCount(max(field.Mesh().Count()-countStep, 1))
			log.Infof("count: %d", field.Mesh().Count())
		}
	})

	win.Run(loop)
	return nil
}

func newRand() *rand.Rand {
	s := seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(s))
}
