// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ren/rhi"
	"github.com/gogpu/ren/rhi/rhitest"
	"github.com/gogpu/ren/shader"
)

const testManifest = `
pipelines:
  - name: a
    kind: compute
    source: a.wgsl
    group_size: [8, 8, 1]
    push_constants: 16
  - name: b
    kind: compute
    source: b.wgsl
    group_size: [64, 1, 1]
`

const testSource = `@compute @workgroup_size(8, 8, 1)
fn main() {
}
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		shader.ManifestName: {Data: []byte(testManifest)},
		"a.wgsl":            {Data: []byte(testSource)},
		"b.wgsl":            {Data: []byte(testSource)},
	}
}

// rejectBroken fails every source containing "broken".
func rejectBroken(name, source string) error {
	if strings.Contains(source, "broken") {
		return errors.New(name + ": broken source")
	}
	return nil
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", testManifest, false},
		{"bad yaml", "pipelines: [", true},
		{"missing name", "pipelines:\n  - kind: compute\n    source: a.wgsl\n", true},
		{"duplicate", "pipelines:\n  - {name: a, kind: compute, source: a.wgsl}\n  - {name: a, kind: compute, source: b.wgsl}\n", true},
		{"missing source", "pipelines:\n  - {name: a, kind: compute}\n", true},
		{"unknown kind", "pipelines:\n  - {name: a, kind: mesh, source: a.wgsl}\n", true},
		{"graphics without vertex", "pipelines:\n  - {name: a, kind: graphics, source: a.wgsl}\n", true},
		{"bad color format", "pipelines:\n  - {name: a, kind: graphics, source: a.wgsl, vertex: vs, color_formats: [rgb565]}\n", true},
		{"color depth format", "pipelines:\n  - {name: a, kind: graphics, source: a.wgsl, vertex: vs, depth_format: rgba8unorm}\n", true},
		{"duplicate variant", "pipelines:\n  - {name: a, kind: compute, source: a.wgsl, variants: [{name: x}, {name: x}]}\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := shader.ParseManifest([]byte(tt.data))
			if tt.wantErr {
				require.ErrorIs(t, err, shader.ErrInvalidManifest)
				return
			}
			require.NoError(t, err)
			require.Len(t, m.Pipelines, 2)
			assert.Equal(t, [3]uint32{8, 8, 1}, m.Pipelines[0].GroupSize)
			assert.Equal(t, uint32(16), m.Pipelines[0].PushConstants)
		})
	}
}

func TestVariantExpand(t *testing.T) {
	v := shader.Variant{Name: "vertical", Defines: map[string]string{"DIRECTION": "0u", "SIZE": "256u"}}
	got := v.Expand("const DIRECTION: u32 = ${DIRECTION};\nconst SIZE: u32 = ${SIZE};")
	assert.Equal(t, "const DIRECTION: u32 = 0u;\nconst SIZE: u32 = 256u;", got)
	assert.Equal(t, "fn main() {}", shader.Variant{}.Expand("fn main() {}"))
}

func TestBuiltinLibrary(t *testing.T) {
	dev := rhitest.NewDevice()
	lib, err := shader.New(dev, shader.WithValidator(nil))
	require.NoError(t, err)

	names := lib.Names()
	for _, want := range []string{
		"basic_draw", "g_buffer_resolve", "apply_exposure", "tone_map", "brdf_bake",
		"equirectangular_to_cubemap", "ibl_prefilter_diffuse", "skybox",
		"hosek_wilkie_generate_cubemap", "initial_spectrum", "time_dependent_spectrum",
		"fft/vertical", "fft/horizontal", "fft_min_max_resolve", "ocean_texture_reorder",
		"ocean_render_patch",
	} {
		assert.Contains(t, names, want)
	}
	assert.Equal(t, len(names), dev.LiveCount())

	assert.Same(t, lib.Variant("fft", "vertical"), lib.Pipeline("fft"))
	assert.NotSame(t, lib.Variant("fft", "vertical"), lib.Variant("fft", "horizontal"))

	resolve := lib.Pipeline("g_buffer_resolve")
	assert.Equal(t, rhi.BindPointCompute, resolve.BindPoint)
	assert.Equal(t, [3]uint32{8, 8, 1}, resolve.GroupSize)
	assert.Equal(t, rhi.BindPointGraphics, lib.Pipeline("basic_draw").BindPoint)

	lib.Close()
	lib.Close()
	assert.Zero(t, dev.LiveCount())
}

func TestBuiltinSourcesDeclarePushBlock(t *testing.T) {
	data, err := fs.ReadFile(shader.Builtin(), shader.ManifestName)
	require.NoError(t, err)
	m, err := shader.ParseManifest(data)
	require.NoError(t, err)

	for _, p := range m.Pipelines {
		t.Run(p.Name, func(t *testing.T) {
			src, err := fs.ReadFile(shader.Builtin(), p.Source)
			require.NoError(t, err)
			source := string(src)
			assert.Contains(t, source, "@group(0) @binding(0) var<uniform>")
			switch p.Kind {
			case shader.KindCompute:
				entry := p.Entry
				if entry == "" {
					entry = "main"
				}
				assert.Contains(t, source, "fn "+entry+"(")
			case shader.KindGraphics:
				assert.Contains(t, source, "fn "+p.Vertex+"(")
				assert.Contains(t, source, "fn "+p.Fragment+"(")
			}
			for _, v := range p.Variants {
				assert.NotContains(t, v.Expand(source), "${", "variant %s", v.Name)
			}
		})
	}
}

func TestBuiltinShadersCompile(t *testing.T) {
	data, err := fs.ReadFile(shader.Builtin(), shader.ManifestName)
	require.NoError(t, err)
	m, err := shader.ParseManifest(data)
	require.NoError(t, err)

	for _, p := range m.Pipelines {
		t.Run(p.Name, func(t *testing.T) {
			src, err := fs.ReadFile(shader.Builtin(), p.Source)
			require.NoError(t, err)
			variants := p.Variants
			if len(variants) == 0 {
				variants = []shader.Variant{{}}
			}
			for _, v := range variants {
				err := shader.Validate(p.Name, v.Expand(string(src)))
				if err != nil && (strings.Contains(err.Error(), "not yet implemented") ||
					strings.Contains(err.Error(), "not supported")) {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRejectsBadSource(t *testing.T) {
	require.Error(t, shader.Validate("bad", "fn ("))
}

func TestLookupUnknown(t *testing.T) {
	lib, err := shader.New(rhitest.NewDevice(), shader.WithFS(testFS()), shader.WithValidator(nil))
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.Lookup("missing")
	require.ErrorIs(t, err, shader.ErrUnknownPipeline)
	_, err = lib.LookupVariant("a", "vertical")
	require.ErrorIs(t, err, shader.ErrUnknownPipeline)
	assert.Panics(t, func() { lib.Pipeline("missing") })
}

func TestNewFailureDestroysCreated(t *testing.T) {
	dev := rhitest.NewDevice()
	fsys := testFS()
	fsys["b.wgsl"] = &fstest.MapFile{Data: []byte("broken")}

	_, err := shader.New(dev, shader.WithFS(fsys), shader.WithValidator(rejectBroken))
	require.Error(t, err)
	assert.Zero(t, dev.LiveCount())

	delete(fsys, shader.ManifestName)
	_, err = shader.New(dev, shader.WithFS(fsys))
	require.ErrorIs(t, err, shader.ErrInvalidManifest)
}

func TestReload(t *testing.T) {
	dev := rhitest.NewDevice()
	fsys := testFS()
	lib, err := shader.New(dev, shader.WithFS(fsys), shader.WithValidator(rejectBroken))
	require.NoError(t, err)
	defer lib.Close()

	n, err := lib.Reload()
	require.NoError(t, err)
	assert.Zero(t, n, "nothing invalidated")

	oldA, oldB := lib.Pipeline("a"), lib.Pipeline("b")
	lib.Invalidate("a.wgsl")
	lib.Invalidate("unrelated.txt")
	assert.Equal(t, 2, lib.Stats().Dirty)

	n, err = lib.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotSame(t, oldA, lib.Pipeline("a"))
	assert.Same(t, oldB, lib.Pipeline("b"))
	assert.False(t, dev.IsLive(oldA), "replaced pipeline destroyed")
	assert.Equal(t, 1, dev.WaitIdleCount())
	assert.Equal(t, 2, dev.LiveCount())

	// a and b share their source: validated once, reused by b and the reload.
	st := lib.Stats()
	assert.Equal(t, shader.Stats{Pipelines: 2, Reloads: 1, Validations: 1, ValidationHits: 2}, st)
}

func TestValidationRunsOncePerSource(t *testing.T) {
	dev := rhitest.NewDevice()
	fsys := testFS()
	var seen []string
	count := func(name, source string) error {
		seen = append(seen, name)
		return rejectBroken(name, source)
	}
	lib, err := shader.New(dev, shader.WithFS(fsys), shader.WithValidator(count))
	require.NoError(t, err)
	defer lib.Close()
	assert.Len(t, seen, 1, "a and b share one source")

	fsys["a.wgsl"] = &fstest.MapFile{Data: []byte("broken")}
	lib.Invalidate("a.wgsl")
	_, err = lib.Reload()
	require.Error(t, err)
	assert.Len(t, seen, 2)

	// A rejected source is validated again once it changes back.
	fsys["a.wgsl"] = &fstest.MapFile{Data: []byte(testSource + "// edited\n")}
	lib.Invalidate("a.wgsl")
	n, err := lib.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, seen, 3)

	fsys["a.wgsl"] = &fstest.MapFile{Data: []byte(testSource)}
	lib.Invalidate("a.wgsl")
	_, err = lib.Reload()
	require.NoError(t, err)
	assert.Len(t, seen, 3, "original source is still cached")
	assert.Equal(t, uint64(3), lib.Stats().Validations)
}

func TestReloadRejectedKeepsPipelines(t *testing.T) {
	dev := rhitest.NewDevice()
	fsys := testFS()
	lib, err := shader.New(dev, shader.WithFS(fsys), shader.WithValidator(rejectBroken))
	require.NoError(t, err)
	defer lib.Close()

	old := lib.Pipeline("a")
	fsys["a.wgsl"] = &fstest.MapFile{Data: []byte("broken")}
	lib.Invalidate("a.wgsl")

	_, err = lib.Reload()
	require.Error(t, err)
	assert.Same(t, old, lib.Pipeline("a"))
	assert.Equal(t, 2, dev.LiveCount())
	assert.Equal(t, uint64(1), lib.Stats().Failures)
	assert.Zero(t, dev.WaitIdleCount())
}

func TestReloadManifest(t *testing.T) {
	dev := rhitest.NewDevice()
	fsys := testFS()
	lib, err := shader.New(dev, shader.WithFS(fsys), shader.WithValidator(nil))
	require.NoError(t, err)
	defer lib.Close()

	fsys[shader.ManifestName] = &fstest.MapFile{Data: []byte(testManifest + `
  - name: c
    kind: compute
    source: a.wgsl
    variants:
      - {name: x, defines: {N: "1u"}}
`)}
	lib.Invalidate(shader.ManifestName)
	n, err := lib.Reload()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c/x"}, lib.Names())
	assert.Equal(t, 3, dev.LiveCount())
}

func TestWatchEmbedded(t *testing.T) {
	lib, err := shader.New(rhitest.NewDevice(), shader.WithValidator(nil))
	require.NoError(t, err)
	defer lib.Close()
	require.ErrorIs(t, lib.Watch(context.Background()), shader.ErrNotWatchable)
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	for name, f := range testFS() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o600))
	}
	lib, err := shader.New(rhitest.NewDevice(), shader.WithDir(dir), shader.WithValidator(nil))
	require.NoError(t, err)
	defer lib.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lib.Watch(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.wgsl"), []byte(testSource+"\n"), 0o600))
	require.Eventually(t, func() bool { return lib.Stats().Dirty > 0 }, 5*time.Second, 10*time.Millisecond)

	n, err := lib.Reload()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatsString(t *testing.T) {
	s := shader.Stats{Pipelines: 3, Reloads: 2, Failures: 1, Validations: 3, ValidationHits: 1}
	assert.Equal(t, "ShaderLibrary[3 pipelines, 2 reloads, 1 failures, 0 dirty, 1/4 validations cached]", s.String())
}
