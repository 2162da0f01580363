// Package report renders a dataset summary as a downloadable PDF.
package report

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/go-pdf/fpdf"
)

// FileName is the attachment name used for every report download.
const FileName = "dataset_report.pdf"

// Renderer turns a stored dataset into report bytes. Implementations never
// modify the record.
type Renderer interface {
	Render(ctx context.Context, rec core.DatasetRecord, username string) ([]byte, error)
}

// maxPieSlices caps the type distribution chart; smaller types are merged
// into "Other". The table lists every type.
const maxPieSlices = 8

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{241, 245, 249}
	gridColor  = rgb{148, 163, 184}

	pieColors = []rgb{
		{59, 130, 246}, {34, 197, 94}, {249, 115, 22}, {168, 85, 247},
		{236, 72, 153}, {20, 184, 166}, {234, 179, 8}, {100, 116, 139},
	}

	measurementColors = map[string]rgb{
		"flowrate":    {34, 197, 94},
		"pressure":    {249, 115, 22},
		"temperature": {168, 85, 247},
	}
)

// PDFRenderer draws reports with fpdf using only the core fonts, so no font
// files are needed at runtime.
type PDFRenderer struct{}

// NewPDFRenderer creates a renderer.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

// Render builds the report for rec, owned by username.
func (r *PDFRenderer) Render(ctx context.Context, rec core.DatasetRecord, username string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render report %s: %w", rec.ID, err)
	}

	d := newDocument()
	d.title(rec)
	d.userInfo(rec, username)
	d.datasetSummary(rec.Summary)
	d.typeDistribution(rec.Summary.TypeDistribution)
	d.statistics(rec.Summary.Statistics)
	d.closing()

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report %s: %w", rec.ID, err)
	}
	return buf.Bytes(), nil
}

// document wraps one fpdf instance with the report's layout helpers.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument() *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetAuthor("Equipment Visualizer", true)
	pdf.SetCreator("eqviz", true)

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(100, 116, 139)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) title(rec core.DatasetRecord) {
	d.pdf.SetTitle("Equipment Parameter Report", true)
	d.pdf.SetCreationDate(rec.CreatedAt)
	d.pdf.SetModificationDate(rec.CreatedAt)

	d.pdf.SetFont("Helvetica", "B", 20)
	d.pdf.SetTextColor(15, 23, 42)
	d.pdf.CellFormat(0, 12, "Equipment Parameter Report", "", 1, "C", false, 0, "")

	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(71, 85, 105)
	d.pdf.MultiCell(0, 5, "An analytical report generated from uploaded equipment data.", "", "C", false)
	d.pdf.Ln(6)
}

func (d *document) section(name string) {
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(15, 23, 42)
	d.pdf.CellFormat(0, 9, name, "", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *document) userInfo(rec core.DatasetRecord, username string) {
	d.section("User Information")
	d.keyValues([][2]string{
		{"Username", username},
		{"Dataset", rec.Name},
		{"Uploaded", rec.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Dataset ID", rec.ID},
	})
}

func (d *document) datasetSummary(s core.Summary) {
	d.section("Dataset Summary")
	d.keyValues([][2]string{
		{"Total Equipment Count", strconv.Itoa(s.TotalCount)},
		{"Equipment Types", strconv.Itoa(len(s.TypeDistribution))},
	})
}

func (d *document) typeDistribution(dist map[string]int) {
	d.section("Equipment Type Distribution")

	entries := sortedDistribution(dist)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.name, strconv.Itoa(e.count)})
	}
	d.table([]string{"Equipment Type", "Count"}, []float64{120, 60}, rows)

	if pie := pieSlices(entries, maxPieSlices); len(pie) > 0 {
		d.pieChart("Share by type", pie)
	}
}

func (d *document) statistics(stats map[string]core.ColumnStats) {
	d.section("Statistical Analysis")

	rows := make([][]string, 0, len(core.Measurements))
	labels := make([]string, 0, len(core.Measurements))
	values := make([]float64, 0, len(core.Measurements))
	keys := make([]string, 0, len(core.Measurements))
	for _, m := range core.Measurements {
		st, ok := stats[m.Key]
		if !ok {
			continue
		}
		rows = append(rows, []string{m.Column, formatFloat(st.Avg), formatFloat(st.Min), formatFloat(st.Max), formatFloat(st.Std)})
		labels = append(labels, m.Column)
		values = append(values, st.Avg)
		keys = append(keys, m.Key)
	}
	d.table([]string{"Parameter", "Average", "Minimum", "Maximum", "Std Dev"}, []float64{40, 35, 35, 35, 35}, rows)

	if len(values) > 0 {
		d.barChart("Average equipment parameters", labels, values, func(i int) rgb {
			return measurementColors[keys[i]]
		})
	}
}

func (d *document) closing() {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.SetTextColor(100, 116, 139)
	d.pdf.MultiCell(0, 5, "This report was generated automatically by the Equipment Visualizer.", "", "L", false)
}

func (d *document) keyValues(pairs [][2]string) {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}
	d.table(nil, []float64{60, 120}, rows)
}

// table draws a bordered grid. A nil header draws body rows only.
func (d *document) table(header []string, widths []float64, rows [][]string) {
	pdf := d.pdf
	pdf.SetDrawColor(gridColor.r, gridColor.g, gridColor.b)
	pdf.SetTextColor(15, 23, 42)

	if header != nil {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
		for i, h := range header {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 && header != nil {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, d.tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// barChart draws horizontal bars. Negative values extend left of the zero
// line so temperatures below zero still render.
func (d *document) barChart(caption string, labels []string, values []float64, color func(int) rgb) {
	const (
		labelW = 45.0
		plotW  = 115.0
		barH   = 6.0
		gap    = 2.0
	)
	pdf := d.pdf
	height := float64(len(values))*(barH+gap) + 10

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(71, 85, 105)
	pdf.CellFormat(0, 6, caption, "", 1, "L", false, 0, "")

	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	left, _, _, _ := pdf.GetMargins()
	x0 := left + labelW
	zeroX := x0 + (0-lo)/span*plotW
	top := pdf.GetY()
	y := top

	pdf.SetFont("Helvetica", "", 9)
	for i, v := range values {
		pdf.SetXY(left, y)
		pdf.SetTextColor(15, 23, 42)
		pdf.CellFormat(labelW-2, barH, d.tr(truncate(labels[i], 24)), "", 0, "R", false, 0, "")

		end := x0 + (v-lo)/span*plotW
		c := color(i)
		pdf.SetFillColor(c.r, c.g, c.b)
		pdf.Rect(math.Min(zeroX, end), y, math.Abs(end-zeroX), barH, "F")

		pdf.SetXY(x0+plotW+2, y)
		pdf.CellFormat(20, barH, formatFloat(v), "", 0, "L", false, 0, "")
		y += barH + gap
	}

	pdf.SetDrawColor(gridColor.r, gridColor.g, gridColor.b)
	pdf.Line(zeroX, top, zeroX, y-gap)
	pdf.SetXY(left, y)
	pdf.Ln(4)
}

// pieSlice is one sector, with angles in degrees clockwise from 12 o'clock.
type pieSlice struct {
	name       string
	count      int
	start, end float64
}

// pieSlices turns sorted entries into sectors. Entries past limit-1 are merged
// into a trailing "Other" slice when there are more than limit.
func pieSlices(entries []distEntry, limit int) []pieSlice {
	total := 0
	for _, e := range entries {
		total += e.count
	}
	if total == 0 {
		return nil
	}

	if len(entries) > limit {
		other := distEntry{name: "Other"}
		for _, e := range entries[limit-1:] {
			other.count += e.count
		}
		entries = append(append([]distEntry(nil), entries[:limit-1]...), other)
	}

	out := make([]pieSlice, 0, len(entries))
	angle := 0.0
	for i, e := range entries {
		end := angle + 360*float64(e.count)/float64(total)
		if i == len(entries)-1 {
			end = 360
		}
		out = append(out, pieSlice{name: e.name, count: e.count, start: angle, end: end})
		angle = end
	}
	return out
}

// pieChart draws filled sectors with a legend to the right.
func (d *document) pieChart(caption string, slices []pieSlice) {
	const (
		radius  = 30.0
		legendX = 80.0
		rowH    = 6.0
		step    = 3.0 // degrees between polygon points
	)
	pdf := d.pdf
	height := math.Max(2*radius, float64(len(slices))*rowH) + 14

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(71, 85, 105)
	pdf.CellFormat(0, 6, caption, "", 1, "L", false, 0, "")

	left, _, _, _ := pdf.GetMargins()
	top := pdf.GetY() + 2
	cx, cy := left+radius, top+radius

	total := 0
	for _, sl := range slices {
		total += sl.count
	}

	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(0.3)
	for i, sl := range slices {
		c := pieColors[i%len(pieColors)]
		pdf.SetFillColor(c.r, c.g, c.b)

		if len(slices) == 1 {
			pdf.Circle(cx, cy, radius, "F")
		} else {
			pts := []fpdf.PointType{{X: cx, Y: cy}}
			for a := sl.start; a < sl.end; a += step {
				pts = append(pts, piePoint(cx, cy, radius, a))
			}
			pts = append(pts, piePoint(cx, cy, radius, sl.end))
			pdf.Polygon(pts, "FD")
		}

		y := top + float64(i)*rowH
		pdf.Rect(left+legendX, y+1.5, 4, 4, "F")
		pdf.SetXY(left+legendX+6, y)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(15, 23, 42)
		share := 100 * float64(sl.count) / float64(total)
		pdf.CellFormat(0, rowH, fmt.Sprintf("%s  %d (%.1f%%)", d.tr(truncate(sl.name, 32)), sl.count, share), "", 0, "L", false, 0, "")
	}

	pdf.SetLineWidth(0.2)
	pdf.SetXY(left, top+height-8)
	pdf.Ln(4)
}

// piePoint returns the point at angle degrees clockwise from 12 o'clock.
func piePoint(cx, cy, r, angle float64) fpdf.PointType {
	rad := (angle - 90) * math.Pi / 180
	return fpdf.PointType{X: cx + r*math.Cos(rad), Y: cy + r*math.Sin(rad)}
}

type distEntry struct {
	name  string
	count int
}

// sortedDistribution orders types by count descending, then by name, so the
// same summary always produces the same report.
func sortedDistribution(dist map[string]int) []distEntry {
	entries := make([]distEntry, 0, len(dist))
	for name, count := range dist {
		entries = append(entries, distEntry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	return entries
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
