// Package chart owns the rendered chart instances of the dashboard. Each named
// slot holds at most one live instance; Render replaces it atomically.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	ErrMissingTarget = errors.New("chart target not mounted")
	ErrEmptySeries   = errors.New("chart has no data")
	ErrBadSeries     = errors.New("chart series x and y lengths differ")
	ErrUnknownKind   = errors.New("unknown chart kind")
	ErrUnknownFormat = errors.New("unknown chart format")
)

// Kind selects the chart type.
type Kind string

const (
	KindLine     Kind = "line"
	KindBar      Kind = "bar"
	KindDoughnut Kind = "doughnut"
	KindScatter  Kind = "scatter"
	kindSpark    Kind = "sparkline"
)

// Format is the encoded image type.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat validates a configured image format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPNG, FormatSVG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type of the encoded image.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() gochart.RendererProvider {
	if f == FormatSVG {
		return gochart.SVG
	}
	return gochart.PNG
}

// Series is one named data set. X may be nil, in which case points are
// placed at their index.
type Series struct {
	Name  string
	Color string
	X     []float64
	Y     []float64
}

// Options override the shared baseline style for one chart.
type Options struct {
	ShowLegend bool
	GridColor  string
	Width      int
	Height     int
	YMin       *float64
}

// Spec describes a chart to draw. Bar and doughnut charts read the first
// series' Y values, labelled by Labels and colored by Colors.
type Spec struct {
	Kind    Kind
	Title   string
	Labels  []string
	Colors  []string
	Series  []Series
	Options Options
}

// Instance is a rendered chart bound to a slot.
type Instance struct {
	ID          uuid.UUID
	Slot        string
	Kind        Kind
	ContentType string
	Image       []byte
	RenderedAt  time.Time
}

// Destroy releases the encoded image.
func (i *Instance) Destroy() {
	i.Image = nil
}

// Adapter renders charts into mounted slots.
type Adapter struct {
	mu        sync.Mutex
	format    Format
	width     int
	height    int
	mounted   map[string]bool
	instances map[string]*Instance
}

// New creates an adapter that encodes charts as format at the given default size.
func New(format string, width, height int) (*Adapter, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid chart size %dx%d", width, height)
	}
	return &Adapter{
		format:    f,
		width:     width,
		height:    height,
		mounted:   make(map[string]bool),
		instances: make(map[string]*Instance),
	}, nil
}

// Format returns the adapter's image format.
func (a *Adapter) Format() Format {
	return a.format
}

// Mount registers a render target.
func (a *Adapter) Mount(slots ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range slots {
		a.mounted[s] = true
	}
}

// Mounted reports whether slot is a registered target.
func (a *Adapter) Mounted(slot string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted[slot]
}

// Unmount destroys the slot's instance and removes the target.
func (a *Adapter) Unmount(slot string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyLocked(slot)
	delete(a.mounted, slot)
}

// Destroy releases the slot's live instance, keeping the target mounted.
func (a *Adapter) Destroy(slot string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyLocked(slot)
}

func (a *Adapter) destroyLocked(slot string) {
	if inst, ok := a.instances[slot]; ok {
		inst.Destroy()
		delete(a.instances, slot)
	}
}

// Instance returns a copy of the slot's live instance.
func (a *Adapter) Instance(slot string) (Instance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.instances[slot]
	if !ok {
		return Instance{}, false
	}
	out := *inst
	out.Image = append([]byte(nil), inst.Image...)
	return out, true
}

// Live is the number of live instances across all slots.
func (a *Adapter) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.instances)
}

// Render draws spec into slot, replacing any prior instance there.
func (a *Adapter) Render(slot string, spec Spec) (*Instance, error) {
	if !a.Mounted(slot) {
		return nil, fmt.Errorf("%w: %s", ErrMissingTarget, slot)
	}

	img, err := a.draw(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %s: %w", slot, err)
	}
	return a.swap(slot, spec.Kind, img)
}

// Sparkline draws a small axis-less line. An unmounted slot is a no-op.
func (a *Adapter) Sparkline(slot string, values []int) (*Instance, error) {
	if !a.Mounted(slot) {
		return nil, nil
	}
	ys := make([]float64, len(values))
	for i, v := range values {
		ys[i] = float64(v)
	}
	img, err := a.draw(Spec{
		Kind:    kindSpark,
		Series:  []Series{{Name: "likes", Color: "#3b82f6", Y: ys}},
		Options: Options{Width: 160, Height: 40},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render sparkline %s: %w", slot, err)
	}
	return a.swap(slot, kindSpark, img)
}

func (a *Adapter) swap(slot string, kind Kind, img []byte) (*Instance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// Unmounted while drawing.
	if !a.mounted[slot] {
		return nil, fmt.Errorf("%w: %s", ErrMissingTarget, slot)
	}
	a.destroyLocked(slot)
	inst := &Instance{
		ID:          uuid.New(),
		Slot:        slot,
		Kind:        kind,
		ContentType: a.format.ContentType(),
		Image:       img,
		RenderedAt:  time.Now(),
	}
	a.instances[slot] = inst
	return inst, nil
}

func (a *Adapter) draw(spec Spec) ([]byte, error) {
	w, h := a.width, a.height
	if spec.Options.Width > 0 {
		w = spec.Options.Width
	}
	if spec.Options.Height > 0 {
		h = spec.Options.Height
	}

	var buf bytes.Buffer
	var err error
	switch spec.Kind {
	case KindLine, KindScatter, kindSpark:
		var c gochart.Chart
		c, err = xyChart(spec, w, h)
		if err == nil {
			err = c.Render(a.format.provider(), &buf)
		}
	case KindBar:
		var c gochart.BarChart
		c, err = barChart(spec, w, h)
		if err == nil {
			err = c.Render(a.format.provider(), &buf)
		}
	case KindDoughnut:
		var c gochart.DonutChart
		c, err = donutChart(spec, w, h)
		if err == nil {
			err = c.Render(a.format.provider(), &buf)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(spec.Kind))
	}
	if err != nil {
		log.Printf("[chart] %s %q: %v", spec.Kind, spec.Title, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// Color parses "#rrggbb" into a drawing color.
func Color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

const defaultGrid = "#e2e8f0"

func gridStyle(o Options) gochart.Style {
	c := defaultGrid
	if o.GridColor != "" {
		c = o.GridColor
	}
	return gochart.Style{StrokeColor: Color(c), StrokeWidth: 1}
}

// paddedRange keeps go-chart away from zero-width ranges.
func paddedRange(min, max float64) *gochart.ContinuousRange {
	if min == max {
		if min == 0 {
			return &gochart.ContinuousRange{Min: 0, Max: 1}
		}
		d := math.Abs(min) * 0.1
		return &gochart.ContinuousRange{Min: min - d, Max: max + d}
	}
	return &gochart.ContinuousRange{Min: min, Max: max + (max-min)*0.05}
}

func xyChart(spec Spec, w, h int) (gochart.Chart, error) {
	var series []gochart.Series
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	points := 0

	for _, s := range spec.Series {
		xs := s.X
		if xs == nil {
			xs = make([]float64, len(s.Y))
			for i := range xs {
				xs[i] = float64(i)
			}
		}
		if len(xs) != len(s.Y) {
			return gochart.Chart{}, fmt.Errorf("%w: %s", ErrBadSeries, s.Name)
		}
		if len(s.Y) == 0 {
			continue
		}
		for i := range xs {
			xMin, xMax = math.Min(xMin, xs[i]), math.Max(xMax, xs[i])
			yMin, yMax = math.Min(yMin, s.Y[i]), math.Max(yMax, s.Y[i])
		}
		points += len(s.Y)

		st := gochart.Style{StrokeColor: Color(s.Color), StrokeWidth: 2}
		if spec.Kind == KindScatter {
			st = pointStyle(Color(s.Color))
		}
		series = append(series, gochart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: s.Y, Style: st})
	}
	if points == 0 {
		return gochart.Chart{}, ErrEmptySeries
	}

	if spec.Kind != KindScatter && spec.Options.YMin == nil && yMin > 0 {
		yMin = 0
	}
	if spec.Options.YMin != nil {
		yMin = *spec.Options.YMin
	}

	c := gochart.Chart{
		Title:      spec.Title,
		Width:      w,
		Height:     h,
		Background: gochart.Style{Padding: gochart.Box{Top: 14, Left: 16, Right: 12, Bottom: 12}},
		XAxis: gochart.XAxis{
			Range:          paddedRange(xMin, xMax),
			GridMajorStyle: gridStyle(spec.Options),
			ValueFormatter: labelFormatter(spec.Labels),
		},
		YAxis: gochart.YAxis{
			Range:          paddedRange(yMin, yMax),
			GridMajorStyle: gridStyle(spec.Options),
		},
		Series: series,
	}
	if spec.Kind == kindSpark {
		c.Title = ""
		c.Background = gochart.Style{Padding: gochart.Box{Top: 2, Left: 2, Right: 2, Bottom: 2}}
		c.XAxis.Style = gochart.Style{Hidden: true}
		c.YAxis.Style = gochart.Style{Hidden: true}
	}
	if spec.Options.ShowLegend {
		c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	}
	return c, nil
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func labelFormatter(labels []string) gochart.ValueFormatter {
	if len(labels) == 0 {
		return nil
	}
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		i := int(math.Round(f))
		if i < 0 || i >= len(labels) || math.Abs(f-float64(i)) > 1e-9 {
			return ""
		}
		return labels[i]
	}
}

func barValues(spec Spec) ([]gochart.Value, float64, error) {
	if len(spec.Series) == 0 || len(spec.Series[0].Y) == 0 {
		return nil, 0, ErrEmptySeries
	}
	ys := spec.Series[0].Y
	values := make([]gochart.Value, len(ys))
	total := 0.0
	for i, y := range ys {
		v := gochart.Value{Value: y}
		if i < len(spec.Labels) {
			v.Label = spec.Labels[i]
		}
		col := spec.Series[0].Color
		if i < len(spec.Colors) {
			col = spec.Colors[i]
		}
		if col != "" {
			v.Style = gochart.Style{FillColor: Color(col), StrokeColor: Color(col)}
		}
		values[i] = v
		total += y
	}
	return values, total, nil
}

func barChart(spec Spec, w, h int) (gochart.BarChart, error) {
	values, _, err := barValues(spec)
	if err != nil {
		return gochart.BarChart{}, err
	}
	max := 0.0
	for _, v := range values {
		max = math.Max(max, v.Value)
	}
	return gochart.BarChart{
		Title:      spec.Title,
		Width:      w,
		Height:     h,
		Background: gochart.Style{Padding: gochart.Box{Top: 24}},
		BarWidth:   barWidth(w, len(values)),
		XAxis:      gochart.Style{FontSize: 8},
		YAxis: gochart.YAxis{
			Range:          paddedRange(0, max),
			GridMajorStyle: gridStyle(spec.Options),
		},
		Bars: values,
	}, nil
}

func barWidth(w, n int) int {
	bw := w / (n*2 + 1)
	if bw < 4 {
		return 4
	}
	if bw > 60 {
		return 60
	}
	return bw
}

func donutChart(spec Spec, w, h int) (gochart.DonutChart, error) {
	values, total, err := barValues(spec)
	if err != nil {
		return gochart.DonutChart{}, err
	}
	if total <= 0 {
		return gochart.DonutChart{}, ErrEmptySeries
	}
	return gochart.DonutChart{
		Title:  spec.Title,
		Width:  w,
		Height: h,
		Values: values,
	}, nil
}
