// Package export writes ranking charts to disk and opens profile links.
//
// Charts are horizontal bar charts of the top of the current ranking,
// rendered as SVG (svgo) or PNG (gg).
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/castrank/castrank/pkg/model"
)

// Chart formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// DefaultTopN is how many rows a chart shows when ChartOptions.TopN is zero.
const DefaultTopN = 25

const (
	chartWidth  = 960
	barHeight   = 22
	barGap      = 6
	marginTop   = 48
	marginLeft  = 240
	marginRight = 72
	marginBot   = 24
	labelMax    = 32
)

// Bar is one row of a chart.
type Bar struct {
	Label string
	Value int
}

// ChartOptions configures SaveChart.
type ChartOptions struct {
	// Path is the output file. Its extension picks the format unless Format is set.
	Path   string
	Format string
	Title  string
	Bars   []Bar
	TopN   int
}

// BarsFromPeople turns the first n rows into bars of credit counts.
func BarsFromPeople(people []model.Person, n int) []Bar {
	if n <= 0 || n > len(people) {
		n = len(people)
	}
	bars := make([]Bar, n)
	for i, p := range people[:n] {
		bars[i] = Bar{Label: p.Name, Value: p.Count}
	}
	return bars
}

// BarsFromRanked is BarsFromPeople for role-detail rows.
func BarsFromRanked(people []model.RankedPerson, n int) []Bar {
	if n <= 0 || n > len(people) {
		n = len(people)
	}
	bars := make([]Bar, n)
	for i, p := range people[:n] {
		bars[i] = Bar{Label: p.Name, Value: p.Count}
	}
	return bars
}

// ResolveFormat returns the chart format for opts, defaulting to the
// path's extension.
func ResolveFormat(opts ChartOptions) (string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	switch format {
	case FormatSVG, FormatPNG:
		return format, nil
	case "":
		return "", fmt.Errorf("cannot infer chart format from %q", opts.Path)
	default:
		return "", fmt.Errorf("unsupported chart format %q (want svg or png)", format)
	}
}

// SaveChart writes the chart described by opts.
func SaveChart(opts ChartOptions) error {
	format, err := ResolveFormat(opts)
	if err != nil {
		return err
	}
	if len(opts.Bars) == 0 {
		return fmt.Errorf("chart has no rows")
	}
	bars := opts.Bars
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(bars) > topN {
		bars = bars[:topN]
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	w := bufio.NewWriter(f)

	switch format {
	case FormatSVG:
		err = WriteSVG(w, opts.Title, bars)
	case FormatPNG:
		err = WritePNG(w, opts.Title, bars)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s chart: %w", format, err)
	}
	return nil
}

type layout struct {
	height int
	scale  float64
}

func chartLayout(bars []Bar) layout {
	maxValue := 1
	for _, b := range bars {
		maxValue = max(maxValue, b.Value)
	}
	plot := chartWidth - marginLeft - marginRight
	return layout{
		height: marginTop + len(bars)*(barHeight+barGap) + marginBot,
		scale:  float64(plot) / float64(maxValue),
	}
}

func (l layout) barWidth(v int) int {
	return max(int(float64(v)*l.scale), 1)
}

func barTop(i int) int {
	return marginTop + i*(barHeight+barGap)
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= labelMax {
		return s
	}
	return string(r[:labelMax-1]) + "…"
}

// WriteSVG renders bars as an SVG document.
func WriteSVG(w io.Writer, title string, bars []Bar) error {
	l := chartLayout(bars)
	canvas := svg.New(w)
	canvas.Start(chartWidth, l.height)
	canvas.Title(title)
	canvas.Rect(0, 0, chartWidth, l.height, "fill:#1e1e2e")
	canvas.Text(marginLeft, 30, title, "fill:#cdd6f4;font-size:18px;font-family:sans-serif")
	for i, b := range bars {
		y := barTop(i)
		canvas.Text(marginLeft-10, y+barHeight-6, shorten(b.Label), "fill:#cdd6f4;font-size:13px;font-family:sans-serif;text-anchor:end")
		canvas.Rect(marginLeft, y, l.barWidth(b.Value), barHeight, "fill:#89b4fa")
		canvas.Text(marginLeft+l.barWidth(b.Value)+6, y+barHeight-6, fmt.Sprint(b.Value), "fill:#a6adc8;font-size:12px;font-family:sans-serif")
	}
	canvas.End()
	return nil
}

// WritePNG renders bars as a PNG image.
func WritePNG(w io.Writer, title string, bars []Bar) error {
	l := chartLayout(bars)
	dc := gg.NewContext(chartWidth, l.height)
	dc.SetHexColor("#1e1e2e")
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetHexColor("#cdd6f4")
	dc.DrawString(title, marginLeft, 30)
	for i, b := range bars {
		y := float64(barTop(i))
		dc.SetHexColor("#cdd6f4")
		dc.DrawStringAnchored(shorten(b.Label), marginLeft-10, y+barHeight/2, 1, 0.5)
		dc.SetHexColor("#89b4fa")
		dc.DrawRectangle(marginLeft, y, float64(l.barWidth(b.Value)), barHeight)
		dc.Fill()
		dc.SetHexColor("#a6adc8")
		dc.DrawStringAnchored(fmt.Sprint(b.Value), float64(marginLeft+l.barWidth(b.Value)+6), y+barHeight/2, 0, 0.5)
	}
	return dc.EncodePNG(w)
}
