package chart

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New("png", 320, 200)
	require.NoError(t, err)
	return a
}

func lineSpec(ys ...float64) Spec {
	return Spec{Kind: KindLine, Title: "likes", Series: []Series{{Name: "likes", Color: "#3b82f6", Y: ys}}}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New("gif", 100, 100)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = New("png", 0, 100)
	assert.Error(t, err)
}

func TestRender_MissingTarget(t *testing.T) {
	a := newAdapter(t)
	_, err := a.Render("engagement", lineSpec(1, 2, 3))
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Zero(t, a.Live())
}

func TestRender_ReplacesPriorInstance(t *testing.T) {
	a := newAdapter(t)
	a.Mount("engagement")

	first, err := a.Render("engagement", lineSpec(1, 2, 3))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(first.Image, pngMagic))

	second, err := a.Render("engagement", lineSpec(3, 2, 1))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, first.Image, "prior instance should be destroyed")
	assert.Equal(t, 1, a.Live())

	inst, ok := a.Instance("engagement")
	require.True(t, ok)
	assert.Equal(t, second.ID, inst.ID)
	assert.Equal(t, "image/png", inst.ContentType)
}

func TestRender_Kinds(t *testing.T) {
	a := newAdapter(t)
	a.Mount("c")

	tests := []struct {
		name string
		spec Spec
	}{
		{"line with labels", Spec{Kind: KindLine, Labels: []string{"3/1", "3/2"}, Series: []Series{
			{Name: "likes", Color: "#3b82f6", Y: []float64{10, 20}},
			{Name: "rts", Color: "#10b981", Y: []float64{2, 4}},
		}}},
		{"flat line", lineSpec(5, 5, 5)},
		{"single point", lineSpec(7)},
		{"bar", Spec{Kind: KindBar, Labels: []string{"How to", "共感"}, Series: []Series{{Y: []float64{12.5, 3}}}}},
		{"bar all zero", Spec{Kind: KindBar, Labels: []string{"a", "b"}, Series: []Series{{Y: []float64{0, 0}}}}},
		{"doughnut", Spec{Kind: KindDoughnut, Labels: []string{"S", "A"}, Colors: []string{"#f59e0b", "#10b981"}, Series: []Series{{Y: []float64{2, 5}}}}},
		{"scatter", Spec{Kind: KindScatter, Series: []Series{{Name: "chars", Color: "#a855f7", X: []float64{20, 40, 33}, Y: []float64{10, 80, 45}}}}},
		{"legend", Spec{Kind: KindLine, Options: Options{ShowLegend: true, GridColor: "#cccccc"}, Series: []Series{{Name: "x", Y: []float64{1, 2}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := a.Render("c", tt.spec)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(inst.Image, pngMagic))
		})
	}
	assert.Equal(t, 1, a.Live())
}

func TestRender_Errors(t *testing.T) {
	a := newAdapter(t)
	a.Mount("c")

	_, err := a.Render("c", lineSpec())
	assert.ErrorIs(t, err, ErrEmptySeries)
	_, err = a.Render("c", Spec{Kind: KindBar})
	assert.ErrorIs(t, err, ErrEmptySeries)
	_, err = a.Render("c", Spec{Kind: KindDoughnut, Series: []Series{{Y: []float64{0, 0}}}})
	assert.ErrorIs(t, err, ErrEmptySeries)
	_, err = a.Render("c", Spec{Kind: KindScatter, Series: []Series{{X: []float64{1}, Y: []float64{1, 2}}}})
	assert.ErrorIs(t, err, ErrBadSeries)
	_, err = a.Render("c", Spec{Kind: "radar", Series: []Series{{Y: []float64{1}}}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Zero(t, a.Live(), "failed renders must not leave an instance")
}

func TestSparkline_UnmountedIsNoop(t *testing.T) {
	a := newAdapter(t)
	inst, err := a.Sparkline("spark", []int{1, 2, 3})
	assert.NoError(t, err)
	assert.Nil(t, inst)

	a.Mount("spark")
	inst, err = a.Sparkline("spark", []int{1, 2, 3})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(inst.Image, pngMagic))
}

func TestUnmount(t *testing.T) {
	a := newAdapter(t)
	a.Mount("a", "b")
	_, err := a.Render("a", lineSpec(1, 2))
	require.NoError(t, err)
	_, err = a.Render("b", lineSpec(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, a.Live())

	a.Unmount("a")
	assert.Equal(t, 1, a.Live())
	assert.False(t, a.Mounted("a"))
	_, err = a.Render("a", lineSpec(1, 2))
	assert.ErrorIs(t, err, ErrMissingTarget)

	a.Destroy("b")
	assert.Zero(t, a.Live())
	assert.True(t, a.Mounted("b"))
}

func TestRender_ConcurrentSameSlot(t *testing.T) {
	a := newAdapter(t)
	a.Mount("c")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Render("c", lineSpec(float64(i), float64(i+1)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, a.Live())
}

func TestSVGFormat(t *testing.T) {
	a, err := New("svg", 200, 100)
	require.NoError(t, err)
	a.Mount("c")
	inst, err := a.Render("c", lineSpec(1, 2))
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", inst.ContentType)
	assert.Contains(t, string(inst.Image), "<svg")
}

func TestLabelFormatter(t *testing.T) {
	f := labelFormatter([]string{"3/1", "3/2"})
	assert.Equal(t, "3/2", f(1.0))
	assert.Equal(t, "", f(0.5))
	assert.Equal(t, "", f(5.0))
	assert.Nil(t, labelFormatter(nil))
}
