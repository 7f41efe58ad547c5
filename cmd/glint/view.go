package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"github.com/taigrr/glint/pkg/scene"
)

// turntable eases the displayed yaw toward a target angle.
type turntable struct {
	Yaw    float64
	target float64
	vel    float64
	spring harmonica.Spring
}

func newTurntable(fps int) *turntable {
	// Frequency 6.0 with damping 1.0 settles quickly without overshoot.
	return &turntable{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0)}
}

func (t *turntable) Nudge(delta float64) { t.target += delta }

func (t *turntable) Update() {
	t.Yaw, t.vel = t.spring.Update(t.Yaw, t.vel, t.target)
}

func (t *turntable) Reset() {
	t.Yaw, t.target, t.vel = 0, 0, 0
}

func viewCmd() *cobra.Command {
	var (
		fps  int
		spin float64
	)
	cmd := &cobra.Command{
		Use:   "view <scene.json>",
		Short: "Display the scene in the terminal",
		Long: `Display the scene in the terminal using half-block cells.

Controls:
  A/D, Left/Right  Turn the model
  R                Reset the angle
  Esc, Q           Quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps < 1 {
				return fmt.Errorf("fps must be positive, got %d", fps)
			}
			cfg, err := scene.LoadConfig(args[0])
			if err != nil {
				return err
			}
			cfg.Supersample = 1
			s, err := scene.Load(cfg)
			if err != nil {
				return err
			}
			return runViewer(cmd.Context(), s, fps, spin)
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 30, "target frames per second")
	cmd.Flags().Float64Var(&spin, "spin", 0, "idle spin speed in degrees per second")
	return cmd
}

func runViewer(ctx context.Context, s *scene.Scene, fps int, spinDeg float64) error {
	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	// Each cell shows two framebuffer rows.
	if err := s.Resize(width, height*2); err != nil {
		cleanup()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	const step = math.Pi / 8
	table := newTurntable(fps)
	resized := make(chan uv.WindowSizeEvent, 1)
	keys := make(chan uv.KeyPressEvent, 16)

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				select {
				case resized <- ev:
				default:
				}
			case uv.KeyPressEvent:
				if ev.MatchString("escape", "q", "ctrl+c") {
					cancel()
					return
				}
				select {
				case keys <- ev:
				default:
				}
			}
		}
	}()

	frame := time.Second / time.Duration(fps)
	spin := spinDeg * math.Pi / 180 / float64(fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		case ev := <-resized:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			if err := s.Resize(width, height*2); err != nil {
				cleanup()
				return err
			}
		case ev := <-keys:
			switch {
			case ev.MatchString("a", "left"):
				table.Nudge(-step)
			case ev.MatchString("d", "right"):
				table.Nudge(step)
			case ev.MatchString("r"):
				table.Reset()
			}
			continue
		case <-ticker.C:
		}

		table.Nudge(spin)
		table.Update()
		s.RenderFrame(table.Yaw)
		s.Rasterizer().Framebuffer().Draw(term, uv.Rect(0, 0, width, height))
		if err := term.Display(); err != nil {
			cleanup()
			return fmt.Errorf("display: %w", err)
		}
	}
}
