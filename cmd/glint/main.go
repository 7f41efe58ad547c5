// glint - Software Rasterizer
// Render JSON scene descriptions to image files, turntable sequences or the
// terminal.
//
// Usage:
//
//	glint render scene.json -o out.png
//	glint turntable scene.json --frames 36 --out frames/
//	glint turntable scene.json --orbit
//	glint view scene.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/glint"
	"github.com/taigrr/glint/pkg/export"
	"github.com/taigrr/glint/pkg/math3d"
	"github.com/taigrr/glint/pkg/scene"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
)

func main() {
	if err := fang.Execute(context.Background(), rootCmd()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "glint",
		Short: "Software triangle rasterizer",
		Long:  "glint renders OBJ and glTF scenes with Phong, normal-mapped and PBR shading on the CPU.",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				glint.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log asset loading and frame statistics to stderr")
	root.AddCommand(renderCmd(), turntableCmd(), viewCmd())
	return root
}

func loadScene(path string) (*scene.Scene, error) {
	cfg, err := scene.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return scene.Load(cfg)
}

func summary(cmd *cobra.Command, label, value string) {
	fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render(label)+" "+valueStyle.Render(value))
}

func renderCmd() *cobra.Command {
	var (
		out     string
		yaw     float64
		quality int
	)
	cmd := &cobra.Command{
		Use:   "render <scene.json>",
		Short: "Render one frame to an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScene(args[0])
			if err != nil {
				return err
			}
			start := time.Now()
			img := s.RenderFrame(math3d.Radians(yaw))
			elapsed := time.Since(start)

			if err := export.WriteFile(out, img, &export.Options{Quality: quality}); err != nil {
				return err
			}
			stats := s.Rasterizer().CullingStats
			var tris, verts int
			for _, obj := range s.Objects {
				tris += obj.Mesh.TriangleCount()
				verts += obj.Mesh.VertexCount()
			}
			summary(cmd, "wrote", out)
			summary(cmd, "size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
			summary(cmd, "geometry", fmt.Sprintf("%d triangles, %d vertices", tris, verts))
			summary(cmd, "meshes", fmt.Sprintf("%d drawn, %d culled", stats.MeshesDrawn, stats.MeshesCulled))
			summary(cmd, "time", elapsed.Round(time.Millisecond).String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "out.png", "output image (.png, .jpg or .webp)")
	cmd.Flags().Float64Var(&yaw, "yaw", 0, "turntable angle in degrees")
	cmd.Flags().IntVar(&quality, "quality", export.DefaultJPEGQuality, "JPEG quality (1-100)")
	return cmd
}

func turntableCmd() *cobra.Command {
	var (
		frames int
		outDir string
		format string
		orbit  bool
	)
	cmd := &cobra.Command{
		Use:   "turntable <scene.json>",
		Short: "Render a full revolution as numbered frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames < 1 {
				return fmt.Errorf("frames must be positive, got %d", frames)
			}
			s, err := loadScene(args[0])
			if err != nil {
				return err
			}
			log := glint.Logger()
			step := 2 * math.Pi / float64(frames)
			start := time.Now()
			for i := range frames {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				// Either the camera circles still objects or the objects spin.
				yaw := step * float64(i)
				if orbit {
					if i > 0 {
						s.Camera.Orbit(step)
					}
					yaw = 0
				}
				path := filepath.Join(outDir, fmt.Sprintf("frame_%04d.%s", i, format))
				if err := export.WriteFile(path, s.RenderFrame(yaw), nil); err != nil {
					return err
				}
				log.Info("frame written", "path", path, "yaw", yaw, "camera", s.Camera.Position)
			}
			summary(cmd, "wrote", fmt.Sprintf("%d frames to %s", frames, outDir))
			summary(cmd, "time", time.Since(start).Round(time.Millisecond).String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&frames, "frames", "n", 36, "number of frames in the revolution")
	cmd.Flags().StringVarP(&outDir, "out", "o", "frames", "output directory")
	cmd.Flags().StringVar(&format, "format", "png", "frame format (png, jpg or webp)")
	cmd.Flags().BoolVar(&orbit, "orbit", false, "move the camera around the scene instead of spinning the objects")
	return cmd
}
