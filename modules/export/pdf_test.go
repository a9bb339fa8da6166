package export

import (
	"bytes"
	"testing"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(coords ...float64) []canvas.Point {
	out := make([]canvas.Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, canvas.Point{X: coords[i], Y: coords[i+1]})
	}
	return out
}

func TestRenderPDF(t *testing.T) {
	state := canvas.CanvasState{
		RoomID: "r1",
		Actions: []canvas.Action{
			{ID: "1", Kind: canvas.KindStroke, Tool: canvas.ToolBrush, Points: pts(0, 0, 50, 50, 100, 20), Color: "#ef4444", StrokeWidth: 4},
			{ID: "2", Kind: canvas.KindStroke, Tool: canvas.ToolEraser, Points: pts(10, 10, 20, 20), Color: canvas.EraseColor, StrokeWidth: 20},
			{ID: "3", Kind: canvas.KindShape, Tool: canvas.ToolLine, Points: pts(0, 0, 1920, 1080), Color: "#000"},
			{ID: "4", Kind: canvas.KindShape, Tool: canvas.ToolArrow, Points: pts(100, 100, 300, 200), Color: "#3b82f6", StrokeWidth: 2},
			{ID: "5", Kind: canvas.KindShape, Tool: canvas.ToolRectangle, Points: pts(400, 400, 300, 300), Color: "#22c55e", Filled: true},
			{ID: "6", Kind: canvas.KindShape, Tool: canvas.ToolCircle, Points: pts(500, 500, 600, 650), Color: "#a855f7"},
			{ID: "7", Kind: canvas.KindShape, Tool: canvas.ToolTriangle, Points: pts(700, 700, 800, 800), Color: "#f97316", Filled: true},
			{ID: "8", Kind: canvas.KindShape, Tool: canvas.ToolDiamond, Points: pts(900, 100, 1000, 200), Color: "not-a-color"},
			{ID: "9", Kind: canvas.KindText, Tool: canvas.ToolText, Points: pts(50, 900), Color: "#111111", Text: "Café ✓", StrokeWidth: 3},
			{ID: "10", Kind: canvas.KindStroke, Tool: canvas.ToolBrush, Points: pts(1, 1), Color: "#000"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(state, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("%%EOF")))
}

func TestRenderPDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(canvas.CanvasState{RoomID: "empty"}, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want rgb
	}{
		{"#ef4444", rgb{0xef, 0x44, 0x44}},
		{"#FFF", rgb{255, 255, 255}},
		{"3b82f6", rgb{0x3b, 0x82, 0xf6}},
		{"erase", black},
		{"#12345", black},
		{"#zzzzzz", black},
		{"", black},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseColor(tt.in))
		})
	}
}
