package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/logging"
	"github.com/backmassage/imgpipe/internal/planner"
)

// --- Test doubles and helpers ---

// fakeCodec encodes to "<format>:<source>" and fails for sources that
// start with "broken". onCall, when set, runs with the 1-based call number
// before encoding.
type fakeCodec struct {
	calls  atomic.Int32
	delay  time.Duration
	onCall func(n int32)
}

func (f *fakeCodec) Encode(ctx context.Context, src []byte, format codec.Format, _ codec.Options) ([]byte, error) {
	n := f.calls.Add(1)
	if f.onCall != nil {
		f.onCall(n)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if bytes.HasPrefix(src, []byte("broken")) {
		return nil, errors.Join(codec.ErrCodecFailure, errors.New("corrupt input"))
	}
	return append([]byte(string(format)+":"), src...), nil
}

type failingRemoveFS struct {
	fsys.FS
}

func (failingRemoveFS) RemoveTree(string) error { return os.ErrPermission }

func testDeps(t *testing.T, enc Encoder) (Deps, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	var out, errOut bytes.Buffer
	log.SetOutput(&out, &errOut)
	t.Cleanup(func() { _ = log.Close() })
	return Deps{FS: fsys.NewOS(), Codec: enc, Log: log}, &out, &errOut
}

func writeFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// tree returns every file below root as slash-relative path → content.
func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(root, func(p string, e os.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return files
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// webpSpec converts every file to a full-size WEBP below dest.
func webpSpec(t *testing.T, dest string) *planner.VariantSpec {
	t.Helper()
	s, err := planner.NewVariantSpec(dest, planner.Rule{
		Pattern:     "**/*",
		Descriptors: []planner.Descriptor{{Quality: 80, Ext: ".webp"}},
	})
	if err != nil {
		t.Fatalf("NewVariantSpec: %v", err)
	}
	return s
}

func newJob(src string, spec *planner.VariantSpec, workers int) Job {
	return Job{Stage: "to-webp", SourceRoot: src, Spec: spec, Workers: workers}
}

func mustRun(t *testing.T, ctx context.Context, job Job, deps Deps) *StageResult {
	t.Helper()
	res, err := Run(ctx, job, deps)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func statuses(ds []planner.Derivative) []planner.Status {
	out := make([]planner.Status, len(ds))
	for i, d := range ds {
		out[i] = d.Status
	}
	return out
}

// --- Run tests ---

func TestRun_BrokenFileIsIsolated(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeFile(t, src, "a.png", []byte("a"))
	writeFile(t, src, "broken.png", []byte("broken"))
	writeFile(t, src, "c.png", []byte("c"))

	deps, _, errOut := testDeps(t, &fakeCodec{})
	res := mustRun(t, context.Background(), newJob(src, webpSpec(t, dest), 2), deps)

	if res.Planned != 3 || res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("counts: planned=%d succeeded=%d failed=%d, want 3/2/1", res.Planned, res.Succeeded, res.Failed)
	}
	if !res.Consistent() || !res.HasFailures() {
		t.Errorf("Consistent=%v HasFailures=%v, want true/true", res.Consistent(), res.HasFailures())
	}

	failed := res.Failures()
	if len(failed) != 1 {
		t.Fatalf("got %d failures, want 1", len(failed))
	}
	if failed[0].Source.Rel != "broken.png" {
		t.Errorf("failed source: got %q", failed[0].Source.Rel)
	}
	if !IsKind(failed[0].Err, KindCodec) || !errors.Is(failed[0].Err, codec.ErrCodecFailure) {
		t.Errorf("failure not classified as codec: %v", failed[0].Err)
	}
	if !strings.Contains(errOut.String(), "broken.png") {
		t.Errorf("error output should name broken.png, got %q", errOut.String())
	}

	got, err := os.ReadFile(filepath.Join(dest, "c.webp"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "webp:c" {
		t.Errorf("c.webp: got %q", got)
	}
	if exists(filepath.Join(dest, "broken.webp")) {
		t.Error("broken.webp should not exist")
	}
}

func TestRun_WorkerCountDoesNotChangeResult(t *testing.T) {
	src := t.TempDir()
	for _, rel := range []string{"z.png", "a/b.jpg", "a/c.png", "m.svg"} {
		writeFile(t, src, rel, []byte(rel))
	}
	writeFile(t, src, "broken.jpg", []byte("broken"))

	run := func(workers int) ([]string, []planner.Status, map[string]string) {
		dest := t.TempDir()
		deps, _, _ := testDeps(t, &fakeCodec{})
		res := mustRun(t, context.Background(), newJob(src, webpSpec(t, dest), workers), deps)
		var rels []string
		for _, d := range res.Derivatives {
			rels = append(rels, d.Source.Rel)
		}
		return rels, statuses(res.Derivatives), tree(t, dest)
	}

	rels1, st1, files1 := run(1)
	relsN, stN, filesN := run(8)
	want := []string{"a/b.jpg", "a/c.png", "broken.jpg", "m.svg", "z.png"}
	if !reflect.DeepEqual(rels1, want) {
		t.Errorf("order: got %v, want %v", rels1, want)
	}
	if !reflect.DeepEqual(rels1, relsN) || !reflect.DeepEqual(st1, stN) {
		t.Errorf("1 worker %v %v, 8 workers %v %v", rels1, st1, relsN, stN)
	}
	if !reflect.DeepEqual(files1, filesN) {
		t.Errorf("outputs differ:\n1: %v\n8: %v", files1, filesN)
	}
}

func TestRun_CreatesMissingDestination(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "does", "not", "exist")
	writeFile(t, src, "deep/nested/a.png", []byte("a"))

	deps, _, _ := testDeps(t, &fakeCodec{})
	res := mustRun(t, context.Background(), newJob(src, webpSpec(t, dest), 1), deps)
	if res.Succeeded != 1 {
		t.Errorf("Succeeded: got %d, want 1", res.Succeeded)
	}
	if !exists(filepath.Join(dest, "deep", "nested", "a.webp")) {
		t.Error("nested output not written")
	}
}

func TestRun_SkipsEnlargement(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	data := pngBytes(t, 100, 50)
	writeFile(t, src, "photo.png", data)

	spec, err := planner.NewVariantSpec(dest, planner.Rule{
		Pattern: "**/*.png",
		Descriptors: []planner.Descriptor{
			{Width: 50, Quality: 80, Suffix: "-sm", WithoutEnlargement: true},
			{Width: 100, Quality: 80, Suffix: "-md", WithoutEnlargement: true},
			{Width: 200, Quality: 80, Suffix: "-xl", WithoutEnlargement: true},
			{Quality: 80},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	deps, _, _ := testDeps(t, &fakeCodec{})
	res := mustRun(t, context.Background(), newJob(src, spec, 2), deps)

	want := []planner.Status{
		planner.StatusSucceeded,
		planner.StatusSkippedEnlargement,
		planner.StatusSkippedEnlargement,
		planner.StatusSucceeded,
	}
	if got := statuses(res.Derivatives); !reflect.DeepEqual(got, want) {
		t.Errorf("statuses: got %v, want %v", got, want)
	}
	if res.SkippedEnlargement != 2 || !res.Consistent() {
		t.Errorf("SkippedEnlargement=%d Consistent=%v", res.SkippedEnlargement, res.Consistent())
	}
	if w := res.Derivatives[0].Source.Width; w != 100 {
		t.Errorf("probed width: got %d, want 100", w)
	}
	if res.InputBytes != int64(len(data))*2 {
		t.Errorf("InputBytes: got %d, want %d", res.InputBytes, len(data)*2)
	}
	if exists(filepath.Join(dest, "photo-xl.png")) {
		t.Error("photo-xl.png should not be written")
	}
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.png", []byte("a"))
	writeFile(t, src, "b.png", []byte("b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := &fakeCodec{}
	deps, _, _ := testDeps(t, enc)
	res := mustRun(t, ctx, newJob(src, webpSpec(t, dest), 2), deps)

	if res.Canceled != 2 || res.Skipped != 2 || res.Failed != 0 {
		t.Errorf("canceled=%d skipped=%d failed=%d, want 2/2/0", res.Canceled, res.Skipped, res.Failed)
	}
	if !res.Consistent() {
		t.Error("counts inconsistent")
	}
	if n := enc.calls.Load(); n != 0 {
		t.Errorf("codec called %d times", n)
	}
	for _, d := range res.Derivatives {
		if !IsKind(d.Err, KindCanceled) || !errors.Is(d.Err, context.Canceled) {
			t.Errorf("%s: got %v, want canceled", d.Source.Rel, d.Err)
		}
	}
}

func TestRun_CanceledMidRunFinishesStartedDerivative(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		writeFile(t, src, name+".png", []byte(name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &fakeCodec{onCall: func(n int32) {
		if n == 2 {
			cancel()
		}
	}}
	deps, _, _ := testDeps(t, enc)
	res := mustRun(t, ctx, newJob(src, webpSpec(t, dest), 1), deps)

	want := []planner.Status{
		planner.StatusSucceeded,
		planner.StatusSucceeded, // running when canceled
		planner.StatusCanceled,
		planner.StatusCanceled,
		planner.StatusCanceled,
		planner.StatusCanceled,
	}
	if got := statuses(res.Derivatives); !reflect.DeepEqual(got, want) {
		t.Errorf("statuses: got %v, want %v", got, want)
	}
	if res.Planned != 6 || res.Succeeded != 2 || res.Canceled != 4 || !res.Consistent() {
		t.Errorf("planned=%d succeeded=%d canceled=%d consistent=%v",
			res.Planned, res.Succeeded, res.Canceled, res.Consistent())
	}
	if n := enc.calls.Load(); n != 2 {
		t.Errorf("codec called %d times, want 2", n)
	}

	files := tree(t, dest)
	if len(files) != 2 || files["b.webp"] != "webp:b" {
		t.Errorf("outputs: got %v, want a.webp and b.webp", files)
	}
	for name := range files {
		if fsys.IsTempName(filepath.Base(name)) {
			t.Errorf("temp file left behind: %s", name)
		}
	}
}

func TestRun_Timeout(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, src, "slow.png", []byte("slow"))

	deps, _, _ := testDeps(t, &fakeCodec{delay: time.Second})
	job := newJob(src, webpSpec(t, dest), 1)
	job.Timeout = 20 * time.Millisecond

	res := mustRun(t, context.Background(), job, deps)
	if res.Failed != 1 {
		t.Fatalf("Failed: got %d, want 1", res.Failed)
	}
	d := res.Derivatives[0]
	if !IsKind(d.Err, KindTimeout) || !errors.Is(d.Err, ErrCodecTimeout) {
		t.Errorf("got %v, want timeout", d.Err)
	}
	if exists(filepath.Join(dest, "slow.webp")) {
		t.Error("slow.webp should not be written")
	}
}

func TestRun_MissingSourceIsFatal(t *testing.T) {
	deps, _, _ := testDeps(t, &fakeCodec{})
	missing := filepath.Join(t.TempDir(), "nope")
	res, err := Run(context.Background(), newJob(missing, webpSpec(t, t.TempDir()), 1), deps)
	if err == nil {
		t.Fatal("expected an enumeration error")
	}
	if res == nil {
		t.Fatal("result must never be nil")
	}
	if !IsKind(err, KindEnumeration) {
		t.Errorf("kind: got %q", KindOf(err))
	}
	if !errors.Is(res.Err, err) || !res.HasFailures() || res.Planned != 0 {
		t.Errorf("Err=%v HasFailures=%v Planned=%d", res.Err, res.HasFailures(), res.Planned)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "out")
	writeFile(t, src, "a.png", []byte("a"))

	enc := &fakeCodec{}
	deps, out, _ := testDeps(t, enc)
	job := newJob(src, webpSpec(t, dest), 1)
	job.DryRun = true

	res := mustRun(t, context.Background(), job, deps)
	if res.Succeeded != 1 {
		t.Errorf("Succeeded: got %d, want 1", res.Succeeded)
	}
	if n := enc.calls.Load(); n != 0 {
		t.Errorf("codec called %d times", n)
	}
	if exists(dest) {
		t.Error("destination created in dry run")
	}
	if !strings.Contains(out.String(), "[DRY] Would write a.webp") {
		t.Errorf("missing dry-run line:\n%s", out.String())
	}
}

func TestRun_CollidingTargets(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.png", []byte("a"))

	spec, err := planner.NewVariantSpec(dest,
		planner.Rule{Pattern: "**/*.png", Descriptors: []planner.Descriptor{{Quality: 80, Ext: ".webp"}}},
		planner.Rule{Pattern: "**/*", Descriptors: []planner.Descriptor{{Quality: 70, Ext: ".webp"}}},
	)
	if err != nil {
		t.Fatal(err)
	}

	deps, out, _ := testDeps(t, &fakeCodec{})
	res := mustRun(t, context.Background(), newJob(src, spec, 2), deps)
	if len(res.Derivatives) != 2 {
		t.Fatalf("got %d derivatives, want 2", len(res.Derivatives))
	}
	if got := res.Derivatives[0].Target; got != filepath.Join(dest, "a.webp") {
		t.Errorf("first target: got %q", got)
	}
	if got := res.Derivatives[1].Target; got != filepath.Join(dest, "a-dup1.webp") {
		t.Errorf("second target: got %q", got)
	}
	if !exists(filepath.Join(dest, "a-dup1.webp")) {
		t.Error("a-dup1.webp not written")
	}
	if !strings.Contains(out.String(), "Target collision: a.webp -> a-dup1.webp") {
		t.Errorf("missing collision warning:\n%s", out.String())
	}
}

func TestRun_PatternRestrictsEnumeration(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.png", []byte("a"))
	writeFile(t, src, "b.jpeg", []byte("b"))

	deps, _, _ := testDeps(t, &fakeCodec{})
	job := newJob(src, webpSpec(t, dest), 1)
	job.Pattern = "**/*.jpeg"
	res := mustRun(t, context.Background(), job, deps)
	if len(res.Derivatives) != 1 || res.Derivatives[0].Source.Rel != "b.jpeg" {
		t.Errorf("got %v, want only b.jpeg", res.Derivatives)
	}
}

// --- Remove tests ---

func TestRemoveTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "dist")
	writeFile(t, root, "images/a.png", []byte("a"))

	deps, _, _ := testDeps(t, &fakeCodec{})
	for i := 0; i < 2; i++ { // the second pass removes an absent tree
		res, err := RemoveTree(context.Background(), "clean", root, false, deps)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if res.Succeeded != 1 {
			t.Errorf("pass %d: Succeeded=%d", i, res.Succeeded)
		}
		if exists(root) {
			t.Errorf("pass %d: %s still exists", i, root)
		}
	}
}

func TestRemoveTree_Failure(t *testing.T) {
	deps, _, _ := testDeps(t, &fakeCodec{})
	deps.FS = failingRemoveFS{deps.FS}

	res, err := RemoveTree(context.Background(), "clean", t.TempDir(), false, deps)
	if !IsKind(err, KindWrite) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("got %v, want write error wrapping ErrPermission", err)
	}
	if res.Failed != 1 || !res.HasFailures() {
		t.Errorf("Failed=%d HasFailures=%v", res.Failed, res.HasFailures())
	}
}

func TestRemoveTree_DryRun(t *testing.T) {
	root := t.TempDir()
	deps, out, _ := testDeps(t, &fakeCodec{})
	res, err := RemoveTree(context.Background(), "clean", root, true, deps)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 1 || !exists(root) {
		t.Errorf("Succeeded=%d exists=%v", res.Succeeded, exists(root))
	}
	if !strings.Contains(out.String(), "[DRY] Would remove") {
		t.Errorf("missing dry-run line:\n%s", out.String())
	}
}

func TestDeleteMatching(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.jpeg", []byte("a"))
	writeFile(t, root, "sub/b.jpeg", []byte("b"))
	writeFile(t, root, "c.jpg", []byte("c"))

	deps, _, _ := testDeps(t, &fakeCodec{})
	res, err := DeleteMatching(context.Background(), Job{Stage: "del-jpeg", SourceRoot: root, Pattern: "**/*.jpeg"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 2 {
		t.Errorf("Succeeded: got %d, want 2", res.Succeeded)
	}
	if got := tree(t, root); !reflect.DeepEqual(got, map[string]string{"c.jpg": "c"}) {
		t.Errorf("remaining files: %v", got)
	}
}

func TestDeleteMatching_MissingRoot(t *testing.T) {
	deps, _, _ := testDeps(t, &fakeCodec{})
	_, err := DeleteMatching(context.Background(), Job{Stage: "del-jpeg", SourceRoot: filepath.Join(t.TempDir(), "x")}, deps)
	if !IsKind(err, KindEnumeration) {
		t.Errorf("got %v, want enumeration error", err)
	}
}

// --- Report tests ---

func TestLogSummary(t *testing.T) {
	src, dest := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.png", []byte("aaaa"))
	writeFile(t, src, "broken.png", []byte("broken"))

	deps, out, errOut := testDeps(t, &fakeCodec{})
	res := mustRun(t, context.Background(), newJob(src, webpSpec(t, dest), 1), deps)

	LogSummary(deps.Log, []*StageResult{res})
	for _, want := range []string{
		"Summary report:",
		"to-webp: 2 planned, 1 succeeded, 1 failed",
		"Done: 1 stage(s), 1 succeeded, 0 skipped, 1 failed",
		// "aaaa" (4 B) became "webp:aaaa" (9 B).
		"Output grew by 5 B",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}
	if !strings.Contains(errOut.String(), "broken.png [full q80 .webp]") {
		t.Errorf("failure line missing:\n%s", errOut.String())
	}
}

func TestLogSummary_DryRun(t *testing.T) {
	deps, out, _ := testDeps(t, &fakeCodec{})
	LogSummary(deps.Log, []*StageResult{{Stage: "resize", DryRun: true}})
	if !strings.Contains(out.String(), "Space saved: n/a (dry run)") {
		t.Errorf("got:\n%s", out.String())
	}
}

// --- Error tests ---

func TestError_Format(t *testing.T) {
	err := Wrap(KindCodec, "encode", "a/b.png", "w360 q80 -sm", errors.New("bad data"))
	if got, want := err.Error(), "[codec:encode] a/b.png [w360 q80 -sm]: bad data"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if KindOf(err) != KindCodec || KindOf(errors.New("plain")) != "" {
		t.Error("KindOf misclassifies")
	}
	if Wrap(KindCodec, "encode", "x", "", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrap_KeepsExistingClassification(t *testing.T) {
	inner := Wrap(KindTimeout, "encode", "x", "", ErrCodecTimeout)
	outer := Wrap(KindCodec, "encode", "x", "", inner)
	if outer != inner {
		t.Error("rewrapping should return the existing error")
	}
	if !IsKind(outer, KindTimeout) {
		t.Errorf("kind: got %q", KindOf(outer))
	}
}

// --- Analyze tests ---

func TestAnalyze(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.png", pngBytes(t, 120, 40))
	writeFile(t, root, "small.png", pngBytes(t, 30, 30))
	writeFile(t, root, "notes.txt", []byte("not an image"))
	writeFile(t, root, "broken.png", []byte("broken"))

	spec, err := planner.NewVariantSpec("dist", planner.Rule{
		Pattern:     "**/*.png",
		Descriptors: []planner.Descriptor{{Width: 60, Quality: 80, Suffix: "-sm", WithoutEnlargement: true}},
	})
	if err != nil {
		t.Fatal(err)
	}

	deps, _, _ := testDeps(t, &fakeCodec{})
	var table bytes.Buffer
	an, err := Analyze(context.Background(), root, spec, deps, &table)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(an.Rows) != 2 || an.Skipped != 1 {
		t.Fatalf("rows=%d skipped=%d, want 2/1", len(an.Rows), an.Skipped)
	}
	big, small := an.Rows[0], an.Rows[1]
	if big.Name != "big.png" || big.Produce != 1 || big.BytesPerPixel <= 0 {
		t.Errorf("big.png row: %+v", big)
	}
	if small.Skip != 1 {
		t.Errorf("small.png row: %+v", small)
	}
	if !strings.Contains(table.String(), "120x40") || strings.Contains(table.String(), "notes.txt") {
		t.Errorf("table:\n%s", table.String())
	}
}

func TestTukeyFences(t *testing.T) {
	f := tukeyFences([]float64{1, 2, 3, 4, 5, 6, 7, 100})
	if !f.discriminate {
		t.Fatal("fences should discriminate")
	}
	if f.q1 != 2.75 || f.q3 != 6.25 {
		t.Errorf("quartiles: got %v, %v", f.q1, f.q3)
	}
	tests := []struct {
		v    float64
		want Class
	}{
		{100, ClassExtreme},
		{12, ClassOutlier},
		{4, ClassNormal},
		{0, ClassNormal},
	}
	for _, tt := range tests {
		if got := f.classify(tt.v); got != tt.want {
			t.Errorf("classify(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}

	if tukeyFences([]float64{1, 2, 3}).discriminate {
		t.Error("fewer than four samples should not discriminate")
	}
	if tukeyFences([]float64{2, 2, 2, 2}).discriminate {
		t.Error("zero spread should not discriminate")
	}
}

func TestQuantile(t *testing.T) {
	s := []float64{10, 20, 30, 40}
	tests := []struct{ q, want float64 }{
		{0, 10},
		{0.5, 25},
		{1, 40},
	}
	for _, tt := range tests {
		if got := quantile(s, tt.q); got != tt.want {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := quantile(nil, 0.5); got != 0 {
		t.Errorf("empty sample: got %v", got)
	}
}

func TestColorPad(t *testing.T) {
	if got := colorPad("ab", 5, ClassNormal); got != "ab   " {
		t.Errorf("got %q", got)
	}
	if got := colorPad("abcdef", 3, ClassNormal); got != "abcdef" {
		t.Errorf("got %q", got)
	}
}

func TestClass_String(t *testing.T) {
	for c, want := range map[Class]string{ClassNormal: "normal", ClassOutlier: "outlier", ClassExtreme: "extreme"} {
		if got := c.String(); got != want {
			t.Errorf("%d: got %q, want %q", c, got, want)
		}
	}
}
