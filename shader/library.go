// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/ren/internal/cache"
	"github.com/gogpu/ren/rhi"
)

// validatedSources bounds the number of remembered valid sources.
const validatedSources = 256

// Stats reports library counters.
type Stats struct {
	Pipelines int
	Reloads   uint64
	Failures  uint64
	Dirty     int

	// Validations counts validator runs. ValidationHits counts sources
	// already validated earlier, by another pipeline, variant or reload.
	Validations    uint64
	ValidationHits uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("ShaderLibrary[%d pipelines, %d reloads, %d failures, %d dirty, %d/%d validations cached]",
		s.Pipelines, s.Reloads, s.Failures, s.Dirty, s.ValidationHits, s.ValidationHits+s.Validations)
}

// Option configures a Library.
type Option func(*Library)

// WithDir loads the manifest and sources from a directory. Directory
// libraries can be watched.
func WithDir(dir string) Option {
	return func(l *Library) {
		l.dir = dir
		l.fsys = os.DirFS(dir)
	}
}

// WithFS loads the manifest and sources from fsys.
func WithFS(fsys fs.FS) Option {
	return func(l *Library) {
		l.dir = ""
		l.fsys = fsys
	}
}

// WithValidator replaces the naga validation run on every source before
// it is handed to the device. nil disables validation.
func WithValidator(validate func(name, source string) error) Option {
	return func(l *Library) { l.validate = validate }
}

// Validate compiles WGSL with naga and discards the result.
func Validate(name, source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("shader: %s: %w", name, err)
	}
	return nil
}

type entry struct {
	desc     PipelineDesc
	variant  Variant
	pipeline *rhi.Pipeline
}

// Library owns the pipelines listed in a manifest and rebuilds them when
// their sources change.
//
// Lookups and Reload must run on the recording goroutine; only Invalidate
// may be called from other goroutines.
type Library struct {
	device   rhi.Device
	fsys     fs.FS
	dir      string
	validate func(name, source string) error
	// validated interns sources that passed validate.
	validated *cache.Cache[string, struct{}]

	entries map[string]*entry
	// first maps a pipeline name to its first variant key.
	first map[string]string

	mu    sync.Mutex
	dirty map[string]struct{}

	reloads  uint64
	failures uint64
	closed   bool
}

// New loads the manifest and creates every pipeline on device. Without
// options the embedded built-in library is used.
func New(device rhi.Device, opts ...Option) (*Library, error) {
	l := &Library{
		device:   device,
		fsys:     Builtin(),
		validate:  Validate,
		validated: cache.New[string, struct{}](validatedSources),
		dirty:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	entries, first, err := l.build(nil)
	if err != nil {
		return nil, err
	}
	l.entries, l.first = entries, first
	slogger().Debug("shader: library loaded", "pipelines", len(entries), "dir", l.dir)
	return l, nil
}

func (l *Library) readManifest() (Manifest, error) {
	data, err := fs.ReadFile(l.fsys, ManifestName)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return ParseManifest(data)
}

// build creates the pipelines of the manifest. Entries of keep whose
// source is unchanged are reused instead of being recreated. On failure
// every pipeline created by the call is destroyed.
func (l *Library) build(keep map[string]*entry) (map[string]*entry, map[string]string, error) {
	m, err := l.readManifest()
	if err != nil {
		return nil, nil, err
	}
	entries := make(map[string]*entry)
	first := make(map[string]string, len(m.Pipelines))
	var created []*rhi.Pipeline
	fail := func(err error) (map[string]*entry, map[string]string, error) {
		for _, p := range created {
			l.device.DestroyPipeline(p)
		}
		return nil, nil, err
	}
	for _, desc := range m.Pipelines {
		variants := desc.Variants
		if len(variants) == 0 {
			variants = []Variant{{}}
		}
		first[desc.Name] = key(desc.Name, variants[0].Name)
		for _, v := range variants {
			k := key(desc.Name, v.Name)
			if old, ok := keep[k]; ok {
				entries[k] = old
				continue
			}
			p, err := l.create(desc, v)
			if err != nil {
				return fail(err)
			}
			created = append(created, p)
			entries[k] = &entry{desc: desc, variant: v, pipeline: p}
		}
	}
	return entries, first, nil
}

func (l *Library) create(desc PipelineDesc, v Variant) (*rhi.Pipeline, error) {
	source, err := fs.ReadFile(l.fsys, desc.Source)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", desc.Name, err)
	}
	var p *rhi.Pipeline
	switch desc.Kind {
	case KindGraphics:
		info := desc.graphicsInfo(v, string(source))
		if err := l.check(info.Name, info.Source); err != nil {
			return nil, err
		}
		p, err = l.device.CreateGraphicsPipeline(info)
	default:
		info := desc.computeInfo(v, string(source))
		if err := l.check(info.Name, info.Source); err != nil {
			return nil, err
		}
		p, err = l.device.CreateComputePipeline(info)
	}
	if err != nil {
		return nil, fmt.Errorf("shader: create %s: %w", key(desc.Name, v.Name), err)
	}
	slogger().Debug("shader: pipeline created", "name", p.Name, "kind", desc.Kind)
	return p, nil
}

// check validates source once per distinct text. Failures are not
// remembered, so a fixed file is validated again.
func (l *Library) check(name, source string) error {
	if l.validate == nil {
		return nil
	}
	_, err := l.validated.GetOrCreate(source, func() (struct{}, error) {
		return struct{}{}, l.validate(name, source)
	})
	return err
}

// Lookup returns the pipeline called name. For pipelines with variants it
// returns the first variant.
func (l *Library) Lookup(name string) (*rhi.Pipeline, error) {
	k, ok := l.first[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return l.entries[k].pipeline, nil
}

// LookupVariant returns a variant of the pipeline called name.
func (l *Library) LookupVariant(name, variant string) (*rhi.Pipeline, error) {
	e, ok := l.entries[key(name, variant)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, key(name, variant))
	}
	return e.pipeline, nil
}

// Pipeline is Lookup for names known to exist; it panics otherwise.
// Callers re-read the pipeline every frame so reloads take effect.
func (l *Library) Pipeline(name string) *rhi.Pipeline {
	p, err := l.Lookup(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Variant is LookupVariant for variants known to exist.
func (l *Library) Variant(name, variant string) *rhi.Pipeline {
	p, err := l.LookupVariant(name, variant)
	if err != nil {
		panic(err)
	}
	return p
}

// Names returns the sorted pipeline keys, variants as name/variant.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.entries))
	for k := range l.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Invalidate marks a source file, or the manifest, as changed. It is safe
// for concurrent use.
func (l *Library) Invalidate(file string) {
	l.mu.Lock()
	l.dirty[file] = struct{}{}
	l.mu.Unlock()
}

func (l *Library) takeDirty() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.dirty) == 0 {
		return nil
	}
	d := l.dirty
	l.dirty = make(map[string]struct{})
	return d
}

// Reload rebuilds the pipelines whose sources were invalidated and returns
// how many were replaced. A changed manifest rebuilds the whole library.
// When any source fails, the previous pipelines stay in use and the error
// is returned. Replaced pipelines are destroyed after the device is idle.
func (l *Library) Reload() (int, error) {
	dirty := l.takeDirty()
	if dirty == nil {
		return 0, nil
	}
	keep := make(map[string]*entry, len(l.entries))
	if _, all := dirty[ManifestName]; !all {
		for k, e := range l.entries {
			if _, changed := dirty[e.desc.Source]; !changed {
				keep[k] = e
			}
		}
	}
	if len(keep) == len(l.entries) {
		return 0, nil
	}

	entries, first, err := l.build(keep)
	if err != nil {
		l.failures++
		slogger().Warn("shader: reload rejected", "err", err)
		return 0, err
	}

	var retired []*rhi.Pipeline
	for k, e := range l.entries {
		if next, ok := entries[k]; !ok || next != e {
			retired = append(retired, e.pipeline)
		}
	}
	replaced := len(entries) - len(keep)
	if len(retired) > 0 {
		if err := l.device.WaitIdle(); err != nil {
			for k, e := range entries {
				if _, ok := keep[k]; !ok {
					l.device.DestroyPipeline(e.pipeline)
				}
			}
			return 0, fmt.Errorf("shader: reload: %w", err)
		}
		for _, p := range retired {
			l.device.DestroyPipeline(p)
		}
	}
	l.entries, l.first = entries, first
	l.reloads++
	slogger().Info("shader: pipelines reloaded", "replaced", replaced, "retired", len(retired))
	return replaced, nil
}

// Stats returns library counters.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	dirty := len(l.dirty)
	l.mu.Unlock()
	cs := l.validated.Stats()
	return Stats{
		Pipelines:      len(l.entries),
		Reloads:        l.reloads,
		Failures:       l.failures,
		Dirty:          dirty,
		Validations:    cs.Misses,
		ValidationHits: cs.Hits,
	}
}

// Close destroys every pipeline. The device must be idle. Close is
// idempotent.
func (l *Library) Close() {
	if l.closed {
		return
	}
	l.closed = true
	for _, e := range l.entries {
		l.device.DestroyPipeline(e.pipeline)
	}
	l.entries = nil
	l.first = nil
	l.validated.Drain()
}
