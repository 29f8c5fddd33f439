// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"log/slog"

	"github.com/gogpu/ren"
	"github.com/gogpu/ren/shader"
	"github.com/gogpu/ren/technique"
)

// SetLogger configures the logger of ren and of every package the
// renderer drives. nil restores the silent default.
//
// The renderer itself logs through ren.Logger:
//   - [slog.LevelDebug]: resizes applied, models added
//   - [slog.LevelInfo]: renderer created and closed, shaders reloaded
//   - [slog.LevelWarn]: rejected shader reloads
func SetLogger(l *slog.Logger) {
	ren.SetLogger(l)
	shader.SetLogger(l)
	technique.SetLogger(l)
}

func slogger() *slog.Logger { return ren.Logger() }
