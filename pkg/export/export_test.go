package export

import (
	"bytes"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/castrank/castrank/pkg/model"
)

func sampleBars() []Bar {
	return BarsFromPeople([]model.Person{
		{PID: 1, Name: "Alice <Lead>", Count: 40},
		{PID: 2, Name: "Bob", Count: 25},
		{PID: 3, Name: "An exceptionally long name that will not fit the label column", Count: 3},
	}, 0)
}

func TestSaveChartFormats(t *testing.T) {
	tmp := t.TempDir()
	cases := []struct {
		name string
		file string
	}{
		{"svg", "top.svg"},
		{"png", "top.png"},
		{"nested", "charts/top.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			if err := SaveChart(ChartOptions{Path: out, Title: "Top people", Bars: sampleBars()}); err != nil {
				t.Fatalf("SaveChart: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatal("output file is empty")
			}
		})
	}
}

func TestSaveChartErrors(t *testing.T) {
	tmp := t.TempDir()
	if err := SaveChart(ChartOptions{Path: filepath.Join(tmp, "chart.txt"), Bars: sampleBars()}); err == nil {
		t.Error("expected error for .txt")
	}
	if err := SaveChart(ChartOptions{Path: filepath.Join(tmp, "chart"), Bars: sampleBars()}); err == nil {
		t.Error("expected error without an extension")
	}
	if err := SaveChart(ChartOptions{Path: filepath.Join(tmp, "chart.svg")}); err == nil {
		t.Error("expected error for an empty chart")
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		opts ChartOptions
		want string
	}{
		{ChartOptions{Path: "a.SVG"}, FormatSVG},
		{ChartOptions{Path: "a.png"}, FormatPNG},
		{ChartOptions{Path: "a.out", Format: "PNG"}, FormatPNG},
	}
	for _, tt := range tests {
		got, err := ResolveFormat(tt.opts)
		if err != nil || got != tt.want {
			t.Errorf("ResolveFormat(%+v) = %q, %v; want %q", tt.opts, got, err, tt.want)
		}
	}
}

func TestWriteSVGEscapesAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, "Top", sampleBars()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Alice &lt;Lead&gt;") {
		t.Error("label was not escaped")
	}
	if strings.Contains(out, "will not fit the label column") {
		t.Error("long label was not shortened")
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Error("document not closed")
	}
}

func TestWritePNGDimensions(t *testing.T) {
	var buf bytes.Buffer
	bars := sampleBars()
	if err := WritePNG(&buf, "Top", bars); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != chartWidth || b.Dy() != chartLayout(bars).height {
		t.Errorf("bounds = %v", b)
	}
}

func TestBarsTruncateToN(t *testing.T) {
	people := []model.RankedPerson{{PID: 1, Name: "a", Count: 3}, {PID: 2, Name: "b", Count: 2}}
	if got := BarsFromRanked(people, 1); len(got) != 1 || got[0].Label != "a" {
		t.Errorf("BarsFromRanked = %+v", got)
	}
	if got := BarsFromRanked(people, 10); len(got) != 2 {
		t.Errorf("BarsFromRanked(10) = %+v", got)
	}
}

func TestOpenInBrowser(t *testing.T) {
	orig := browserCommand
	defer func() { browserCommand = orig }()

	var opened string
	browserCommand = func(goos, target string) *exec.Cmd {
		opened = target
		return exec.Command("true")
	}

	if err := OpenInBrowser("https://example.org/people/alice"); err != nil {
		t.Fatalf("OpenInBrowser: %v", err)
	}
	if opened != "https://example.org/people/alice" {
		t.Errorf("opened %q", opened)
	}
	if err := OpenInBrowser("file:///etc/passwd"); err == nil {
		t.Error("expected non-http link to be refused")
	}
}
