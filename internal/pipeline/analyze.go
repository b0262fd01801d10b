package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/display"
	"github.com/backmassage/imgpipe/internal/planner"
	"github.com/backmassage/imgpipe/internal/probe"
	"github.com/backmassage/imgpipe/internal/term"
)

// AnalysisRow holds the probed per-image data for the analysis table.
type AnalysisRow struct {
	Name          string
	Format        string
	Width, Height int
	Size          int64
	BytesPerPixel float64 // 0 for vectors and unknown dimensions.
	Produce       int     // Derivatives the spec would write.
	Skip          int     // Derivatives skipped to avoid enlargement.
	Class         Class
}

// Analysis is the outcome of [Analyze].
type Analysis struct {
	Rows     []AnalysisRow
	Skipped  int // Files that could not be probed.
	Outliers int
	Extremes int
	Produce  int
	Skip     int
}

// Analyze probes every image below root, previews what spec would produce
// for it, and prints a table with bytes-per-pixel outliers highlighted.
// Heavy images (high bytes per pixel) are the best candidates for
// recompression.
func Analyze(ctx context.Context, root string, spec *planner.VariantSpec, deps Deps, w io.Writer) (*Analysis, error) {
	log := deps.Log
	assets, err := Discover(deps.FS, root, DefaultPattern)
	if err != nil {
		return nil, Wrap(KindEnumeration, "list", root, "", err)
	}
	images := assets[:0:0]
	for _, a := range assets {
		if isImage(a.Rel) {
			images = append(images, a)
		}
	}
	if len(images) == 0 {
		log.Warn("No images found in %s", root)
		return &Analysis{}, nil
	}
	log.Info("Analyzing %d images in %s …", len(images), root)

	prog := progressLine{w: w, live: w == io.Writer(os.Stdout) && term.IsTerminal(os.Stdout)}
	an := &Analysis{}
	var bpp []float64

	for i, a := range images {
		if err := ctx.Err(); err != nil {
			prog.clear()
			log.Warn("Analysis interrupted after %d of %d images", i, len(images))
			return an, err
		}
		prog.show(i+1, len(images), an.Skipped, a.Rel)

		row, ok := analyzeAsset(ctx, a, spec, deps)
		if !ok {
			an.Skipped++
			prog.clear()
			log.Warn("Skip (probe failed): %s", a.Rel)
			continue
		}
		if row.BytesPerPixel > 0 {
			bpp = append(bpp, row.BytesPerPixel)
		}
		an.Produce += row.Produce
		an.Skip += row.Skip
		an.Rows = append(an.Rows, row)
	}
	prog.clear()

	if len(an.Rows) == 0 {
		log.Warn("No images could be probed")
		return an, nil
	}

	f := tukeyFences(bpp)
	for i := range an.Rows {
		c := f.classify(an.Rows[i].BytesPerPixel)
		an.Rows[i].Class = c
		if c == ClassOutlier {
			an.Outliers++
		} else if c == ClassExtreme {
			an.Extremes++
		}
	}

	writeAnalysisTable(w, an.Rows)
	logAnalysisSummary(deps, an, f)
	return an, nil
}

// analyzeAsset probes a and counts what spec would do with it. ok is false
// when the file could not be probed.
func analyzeAsset(ctx context.Context, a planner.Asset, spec *planner.VariantSpec, deps Deps) (row AnalysisRow, ok bool) {
	pr, err := probe.Probe(ctx, deps.FS, a.Path)
	if err != nil {
		return row, false
	}
	a.Width, a.Height, a.Size = pr.Width, pr.Height, pr.Size
	if pr.Format != "" {
		a.Format = pr.Format
	}

	row = AnalysisRow{Name: a.Rel, Format: string(a.Format), Width: a.Width, Height: a.Height, Size: a.Size}
	if row.Format == "" {
		row.Format = pr.MIME
	}
	if px := pr.Pixels(); px > 0 && a.Format != codec.SVG {
		row.BytesPerPixel = float64(a.Size) / float64(px)
	}
	if spec == nil {
		return row, true
	}
	for _, d := range planner.Plan(a, spec) {
		if d.Status == planner.StatusSkippedEnlargement {
			row.Skip++
		} else {
			row.Produce++
		}
	}
	return row, true
}

const maxNameWidth = 50

var analysisColumns = []string{"File", "Format", "Size (px)", "Bytes", "B/px", "Produce/Skip"}

// writeAnalysisTable prints one aligned row per image. Cells are padded
// before they are painted so escape bytes never count toward the width.
func writeAnalysisTable(w io.Writer, rows []AnalysisRow) {
	cells := make([][]string, len(rows))
	widths := make([]int, len(analysisColumns))
	for i, h := range analysisColumns {
		widths[i] = len(h)
	}
	for i, r := range rows {
		cells[i] = []string{
			r.Name,
			r.Format,
			display.FormatDimensions(r.Width, r.Height),
			display.FormatBytes(r.Size),
			fmtBPP(r.BytesPerPixel),
			fmt.Sprintf("%d/%d", r.Produce, r.Skip),
		}
		for j, c := range cells[i] {
			widths[j] = max(widths[j], len(c))
		}
	}
	widths[0] = min(widths[0], maxNameWidth)

	header := joinPadded(analysisColumns, widths)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	for i, r := range rows {
		row := cells[i]
		if len(row[0]) > widths[0] {
			row[0] = "…" + row[0][len(row[0])-widths[0]+1:]
		}
		line := joinPadded(row[:4], widths[:4])
		line += "  " + colorPad(row[4], widths[4], r.Class)
		line += "  " + fmt.Sprintf("%-*s", widths[5], row[5])
		if m := r.Class.marker(); m != "" {
			line += "  " + m
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func joinPadded(cells []string, widths []int) string {
	var b strings.Builder
	for i, c := range cells {
		fmt.Fprintf(&b, "  %-*s", widths[i], c)
	}
	return b.String()
}

func logAnalysisSummary(deps Deps, an *Analysis, f fences) {
	log := deps.Log
	log.Info("Analyzed %d images (%d could not be probed)", len(an.Rows), an.Skipped)
	log.Info("  Derivatives: %d would be written, %d skipped to avoid enlargement", an.Produce, an.Skip)
	if f.discriminate {
		log.Info("  Bytes per pixel, middle half: %.3f to %.3f (outlier below %.3f or above %.3f)",
			f.q1, f.q3, f.innerLo, f.innerHi)
	}
	switch {
	case an.Outliers == 0 && an.Extremes == 0:
		log.Success("  No outliers detected")
	default:
		if an.Outliers > 0 {
			log.Outlier("  %d outlier(s) flagged [*]", an.Outliers)
		}
		if an.Extremes > 0 {
			log.Error("  %d extreme outlier(s) flagged [!]", an.Extremes)
		}
	}
}

func fmtBPP(v float64) string {
	if v <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

// colorPad pads s to width and paints the result in c's color.
func colorPad(s string, width int, c Class) string {
	return term.Paint(c.color(), fmt.Sprintf("%-*s", width, s))
}

// progressLine is a single \r-rewritten status line. It writes nothing
// unless live, so piped output only carries the log lines.
type progressLine struct {
	w    io.Writer
	live bool
}

const progressWidth = 80

func (p progressLine) show(n, total, skipped int, name string) {
	if !p.live {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  Probing %d/%d (%d%%)", n, total, n*100/total)
	if skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", skipped)
	}
	if r := []rune(name); len(r) > 40 {
		name = string(r[:39]) + "…"
	}
	b.WriteString("  " + name)
	fmt.Fprintf(p.w, "\r%-*s", progressWidth, b.String())
}

func (p progressLine) clear() {
	if p.live {
		fmt.Fprintf(p.w, "\r%*s\r", progressWidth, "")
	}
}
