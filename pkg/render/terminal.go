package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw paints the framebuffer into area using upper half-block cells: each
// terminal row shows two framebuffer rows (fg = top, bg = bottom). The
// framebuffer should be twice as tall as the area.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		if topY >= fb.Height {
			break
		}
		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.At(x, topY)),
					Bg: cellColor(fb.At(x, topY+1)),
				},
			})
		}
	}
}

// cellColor maps transparent pixels (outside the framebuffer) to the
// terminal default.
func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}
