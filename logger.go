// Package glint is a software triangle rasterizer with per-pixel
// Blinn-Phong, normal-mapped and Cook-Torrance shading.
//
// The rasterizer core lives in pkg/render and never logs. Loaders and the
// scene driver report recoverable problems through the logger configured
// here, so a scene with a missing texture still renders.
package glint

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// silent drops every record. Enabled reports false at all levels, so
// log calls return before their attributes are formatted.
type silent struct{}

func (silent) Enabled(context.Context, slog.Level) bool  { return false }
func (silent) Handle(context.Context, slog.Record) error { return nil }
func (s silent) WithAttrs([]slog.Attr) slog.Handler      { return s }
func (s silent) WithGroup(string) slog.Handler           { return s }

var (
	quiet   = slog.New(silent{})
	current atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(quiet)
}

// SetLogger routes glint's diagnostics to l. Until it is called glint is
// silent, and passing nil makes it silent again. It may be called while
// frames are rendering.
//
// What glint reports at each level:
//
//   - Warn: an asset was skipped and rendering goes on without it. This
//     covers an unreadable texture or skybox face, a PBR map that failed
//     to load, an OBJ material library that could not be opened, a glTF
//     base colour image that did not decode and a malformed "#rrggbb"
//     texture colour. The affected surface shades without the asset.
//   - Info: one record per loaded scene object (name, triangle count,
//     shader) and one per turntable frame written to disk.
//   - Debug: per-frame rasterizer statistics (turntable angle, meshes
//     drawn and culled), every PBR map path that resolved, and usemtl names
//     missing from the material library.
//
// Nothing is logged at Error; failures that stop a load are returned as
// errors instead.
//
// To see warnings on stderr:
//
//	glint.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//		Level: slog.LevelWarn,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = quiet
	}
	current.Store(l)
}

// Logger returns the logger set by SetLogger, or a silent one.
func Logger() *slog.Logger {
	return current.Load()
}
