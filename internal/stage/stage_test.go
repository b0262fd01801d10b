package stage

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp" // registers WEBP for DecodeConfig

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/logging"
	"github.com/backmassage/imgpipe/internal/pipeline"
	"github.com/backmassage/imgpipe/internal/planner"
)

// --- Test doubles and helpers ---

type echoCodec struct{}

func (echoCodec) Encode(_ context.Context, src []byte, f codec.Format, _ codec.Options) ([]byte, error) {
	if bytes.Equal(src, []byte("broken")) {
		return nil, codec.ErrCodecFailure
	}
	return append([]byte(string(f)+":"), src...), nil
}

// noRemoveFS fails every RemoveTree call.
type noRemoveFS struct {
	fsys.FS
	removes int
}

func (f *noRemoveFS) RemoveTree(string) error {
	f.removes++
	return os.ErrPermission
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.SourceRoot = filepath.Join(root, "src")
	cfg.DestRoot = filepath.Join(root, "dist")
	cfg.ColorMode = config.ColorNever
	return &cfg
}

func testOrchestrator(t *testing.T, cfg *config.Config) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	log, err := logging.NewLogger(cfg)
	require.NoError(t, err)
	var out bytes.Buffer
	log.SetOutput(&out, &out)
	t.Cleanup(func() { _ = log.Close() })
	return &Orchestrator{
		Deps:    pipeline.Deps{FS: fsys.NewOS(), Codec: echoCodec{}, Log: log},
		Workers: 2,
	}, &out
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func names(defs []Definition) []Name {
	out := make([]Name, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

// --- Names and catalog ---

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want Name
		ok   bool
	}{
		{"resize", Resize, true},
		{"image", Optimize, true},
		{"convert-to-webp", ToWEBP, true},
		{"vectorize", Vector, true},
		{" Compress ", Compress, true},
		{"jpeg-to-jpg", JPEGToJPG, true},
		{"deploy", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Canonical(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_CoversEveryStage(t *testing.T) {
	cfg := testConfig(t)
	cat, err := Catalog(cfg)
	require.NoError(t, err)
	for _, n := range All() {
		d, ok := cat[n]
		require.True(t, ok, "missing %s", n)
		assert.Equal(t, n, d.Name)
		if d.Kind == KindTransform {
			assert.NotNil(t, d.Spec, "%s has no spec", n)
		}
	}
	assert.True(t, cat[Clean].FailFast)
	assert.False(t, cat[Resize].FailFast)
	assert.Equal(t, cfg.DestRoot, cat[Clean].Root)
	assert.Equal(t, KindDelete, cat[DelJPEG].Kind)
	assert.Equal(t, "**/*.jpeg", cat[DelJPEG].Pattern)
}

func TestCatalog_OptimizeIsInPlace(t *testing.T) {
	cfg := testConfig(t)
	cat, err := Catalog(cfg)
	require.NoError(t, err)
	d := cat[Optimize]
	a := planner.Asset{Path: filepath.Join(cfg.ImagesDest(), "a", "b.png"), Rel: "a/b.png"}
	ds := planner.Plan(a, d.Spec)
	require.Len(t, ds, 1)
	assert.Equal(t, a.Path, ds[0].Target)
	assert.Equal(t, [2]int{70, 80}, ds[0].Descriptor.Options().PNG.QualityRange)
}

func TestCatalog_ConversionTargets(t *testing.T) {
	cfg := testConfig(t)
	cat, err := Catalog(cfg)
	require.NoError(t, err)

	tests := []struct {
		stage Name
		rel   string
		want  string
		f     codec.Format
	}{
		{ToWEBP, "hero.png", filepath.Join(cfg.ImagesDest(), "hero.webp"), codec.WEBP},
		{PNGToJPG, "logo.png", filepath.Join(cfg.ImagesDest(), "logo.jpg"), codec.JPEG},
		{JPEGToJPG, "x/photo.jpeg", filepath.Join(cfg.ImagesDest(), "x", "photo.jpg"), codec.JPEG},
		{Vector, "icon.svg", filepath.Join(cfg.VectorsDest(), "icon.svg"), codec.SVG},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			ds := planner.Plan(planner.Asset{Rel: tt.rel}, cat[tt.stage].Spec)
			require.Len(t, ds, 1)
			assert.Equal(t, tt.want, ds[0].Target)
			assert.Equal(t, tt.f, ds[0].Format)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := testConfig(t)
	defs, err := Resolve(cfg, "compress", "image", "to-webp")
	require.NoError(t, err)
	assert.Equal(t, []Name{Clean, Resize, Optimize, ToWEBP}, names(defs))
	assert.True(t, defs[0].FailFast)
	assert.False(t, defs[1].FailFast)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve(testConfig(t), "resize", "deploy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStage)
	assert.Contains(t, err.Error(), "deploy")
}

// --- Run state ---

func TestRunState_Transitions(t *testing.T) {
	r := NewRun(nil)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, RunPending, r.State())

	assert.Error(t, r.transition(RunPending, RunCompleted))
	require.NoError(t, r.transition(RunPending, RunRunning))
	assert.Error(t, r.transition(RunPending, RunRunning))
	require.NoError(t, r.transition(RunRunning, RunPartiallyCompleted))
	assert.True(t, r.State().IsTerminal())
	assert.Error(t, r.transition(RunPartiallyCompleted, RunRunning))
	assert.Equal(t, "PARTIALLY_COMPLETED", r.State().String())
}

// --- Orchestrator ---

func TestExecute_CompressCleansThenResizes(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.ImagesSource(), "logo.svg"), []byte("<svg/>"))
	stale := filepath.Join(cfg.DestRoot, "stale.txt")
	writeFile(t, stale, []byte("old"))

	defs, err := Resolve(cfg, "compress")
	require.NoError(t, err)
	o, _ := testOrchestrator(t, cfg)
	run := NewRun(defs)
	results := o.Execute(context.Background(), run)

	require.Len(t, results, 2)
	assert.Equal(t, RunCompleted, run.State())
	assert.NoFileExists(t, stale)
	// logo.svg matches only the "**/*" rule and has no intrinsic width, so
	// none of the five webp variants is skipped.
	assert.Equal(t, 5, results[1].Planned)
	assert.FileExists(t, filepath.Join(cfg.ImagesDest(), "logo-sm.webp"))
}

func TestExecute_CompressRasterizesSVGSources(t *testing.T) {
	cfg := testConfig(t)
	logo := `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600"><rect width="800" height="600" fill="#c03030"/></svg>`
	writeFile(t, filepath.Join(cfg.ImagesSource(), "logo.svg"), []byte(logo))

	defs, err := Resolve(cfg, "compress")
	require.NoError(t, err)
	o, _ := testOrchestrator(t, cfg)
	o.Deps.Codec = codec.Default()
	run := NewRun(defs)
	results := o.Execute(context.Background(), run)

	require.Len(t, results, 2)
	assert.Equal(t, RunCompleted, run.State())
	resize := results[1]
	assert.Equal(t, 5, resize.Planned)
	assert.Equal(t, 4, resize.Succeeded)
	assert.Equal(t, 1, resize.SkippedEnlargement) // -xl is wider than 800
	assert.Zero(t, resize.Failed)

	data, err := os.ReadFile(filepath.Join(cfg.ImagesDest(), "logo-sm.webp"))
	require.NoError(t, err)
	ic, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 360, ic.Width)
	assert.Equal(t, 270, ic.Height)
	assert.FileExists(t, filepath.Join(cfg.ImagesDest(), "logo.webp"))
	assert.NoFileExists(t, filepath.Join(cfg.ImagesDest(), "logo-xl.webp"))
}

func TestExecute_FailFastCleanHaltsResize(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.ImagesSource(), "a.png"), []byte("a"))

	defs, err := Resolve(cfg, "clean", "resize")
	require.NoError(t, err)
	o, out := testOrchestrator(t, cfg)
	fs := &noRemoveFS{FS: o.Deps.FS}
	o.Deps.FS = fs

	run := NewRun(defs)
	results := o.Execute(context.Background(), run)

	require.Len(t, results, 1)
	assert.Equal(t, "clean", results[0].Stage)
	assert.True(t, pipeline.IsKind(results[0].Err, pipeline.KindWrite))
	assert.Equal(t, RunFailed, run.State())
	assert.Equal(t, 1, fs.removes)
	assert.NoDirExists(t, cfg.ImagesDest())
	assert.Contains(t, out.String(), "halting run")
}

func TestExecute_NonFailFastContinues(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.ImagesSource(), "broken.png"), []byte("broken"))
	writeFile(t, filepath.Join(cfg.VectorsSource(), "icon.svg"), []byte("<svg/>"))

	defs, err := Resolve(cfg, "to-webp", "vector")
	require.NoError(t, err)
	o, _ := testOrchestrator(t, cfg)
	run := NewRun(defs)
	results := o.Execute(context.Background(), run)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Failed)
	assert.Equal(t, 1, results[1].Succeeded)
	assert.Equal(t, RunPartiallyCompleted, run.State())
	assert.FileExists(t, filepath.Join(cfg.VectorsDest(), "icon.svg"))
}

func TestExecute_CanceledHaltsBeforeNextStage(t *testing.T) {
	cfg := testConfig(t)
	defs, err := Resolve(cfg, "clean", "resize")
	require.NoError(t, err)
	o, out := testOrchestrator(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run := NewRun(defs)
	results := o.Execute(ctx, run)

	assert.Empty(t, results)
	assert.Equal(t, RunFailed, run.State())
	assert.Contains(t, out.String(), "2 stage(s) not started")
}

func TestExecute_DeleteStage(t *testing.T) {
	cfg := testConfig(t)
	jpeg := filepath.Join(cfg.ImagesDest(), "a.jpeg")
	jpg := filepath.Join(cfg.ImagesDest(), "a.jpg")
	writeFile(t, jpeg, []byte("a"))
	writeFile(t, jpg, []byte("a"))

	defs, err := Resolve(cfg, "del-jpeg")
	require.NoError(t, err)
	o, _ := testOrchestrator(t, cfg)
	results := o.Execute(context.Background(), NewRun(defs))

	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Succeeded)
	assert.NoFileExists(t, jpeg)
	assert.FileExists(t, jpg)
}

func TestExecute_RunIsSingleUse(t *testing.T) {
	cfg := testConfig(t)
	o, out := testOrchestrator(t, cfg)
	run := NewRun(nil)
	o.Execute(context.Background(), run)
	assert.Equal(t, RunCompleted, run.State())

	o.Execute(context.Background(), run)
	assert.Contains(t, out.String(), "invalid transition")
}
