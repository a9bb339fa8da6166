// Package export renders room canvases to printable documents.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/example/canvas-sync/domain/canvas"
	"github.com/jung-kurt/gofpdf"
)

// Page geometry in millimetres, A4 landscape.
const (
	pageWidth  = 297.0
	pageHeight = 210.0
	margin     = 10.0
)

// arrowLength is the length of an arrow head in canvas units.
const arrowLength = 15.0

type rgb struct{ r, g, b int }

var (
	black = rgb{0, 0, 0}
	white = rgb{255, 255, 255}
)

// RenderPDF draws the visible actions of state onto a single landscape page
// and writes the document to w. The logical canvas is scaled to fit the
// page with its aspect ratio kept.
func RenderPDF(state canvas.CanvasState, w io.Writer) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Canvas "+state.RoomID, true)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	p := newPainter(pdf)
	p.frame()
	for _, a := range state.Actions {
		if a.Undone {
			continue
		}
		p.draw(a)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render canvas %s: %w", state.RoomID, err)
	}
	return nil
}

type painter struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	scale float64
	offX  float64
	offY  float64
}

func newPainter(pdf *gofpdf.Fpdf) *painter {
	availW := pageWidth - 2*margin
	availH := pageHeight - 2*margin
	scale := math.Min(availW/canvas.CanvasWidth, availH/canvas.CanvasHeight)
	return &painter{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		scale: scale,
		offX:  margin + (availW-canvas.CanvasWidth*scale)/2,
		offY:  margin + (availH-canvas.CanvasHeight*scale)/2,
	}
}

func (p *painter) x(v float64) float64 { return p.offX + v*p.scale }
func (p *painter) y(v float64) float64 { return p.offY + v*p.scale }

func (p *painter) frame() {
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.SetLineWidth(0.2)
	p.pdf.Rect(p.offX, p.offY, canvas.CanvasWidth*p.scale, canvas.CanvasHeight*p.scale, "D")
}

func (p *painter) draw(a canvas.Action) {
	if len(a.Points) < a.MinPoints() {
		return
	}

	c := parseColor(a.Color)
	if a.Tool == canvas.ToolEraser {
		c = white
	}
	p.pdf.SetDrawColor(c.r, c.g, c.b)
	p.pdf.SetFillColor(c.r, c.g, c.b)
	p.pdf.SetTextColor(c.r, c.g, c.b)

	width := a.StrokeWidth
	if width <= 0 {
		width = 1
	}
	p.pdf.SetLineWidth(width * p.scale)

	style := "D"
	if a.Filled && a.Tool.Closed() {
		style = "FD"
	}

	first, last := a.Points[0], a.Points[len(a.Points)-1]
	switch a.Tool {
	case canvas.ToolBrush, canvas.ToolEraser:
		p.polyline(a.Points)
	case canvas.ToolLine:
		p.line(first, last)
	case canvas.ToolArrow:
		p.line(first, last)
		p.arrowHead(first, last)
	case canvas.ToolRectangle:
		x0, y0 := math.Min(first.X, last.X), math.Min(first.Y, last.Y)
		w, h := math.Abs(last.X-first.X), math.Abs(last.Y-first.Y)
		p.pdf.Rect(p.x(x0), p.y(y0), w*p.scale, h*p.scale, style)
	case canvas.ToolCircle:
		cx, cy := (first.X+last.X)/2, (first.Y+last.Y)/2
		rx, ry := math.Abs(last.X-first.X)/2, math.Abs(last.Y-first.Y)/2
		p.pdf.Ellipse(p.x(cx), p.y(cy), rx*p.scale, ry*p.scale, 0, style)
	case canvas.ToolTriangle:
		p.polygon([]canvas.Point{
			{X: (first.X + last.X) / 2, Y: first.Y},
			{X: last.X, Y: last.Y},
			{X: first.X, Y: last.Y},
		}, style)
	case canvas.ToolDiamond:
		cx, cy := (first.X+last.X)/2, (first.Y+last.Y)/2
		p.polygon([]canvas.Point{
			{X: cx, Y: first.Y},
			{X: last.X, Y: cy},
			{X: cx, Y: last.Y},
			{X: first.X, Y: cy},
		}, style)
	case canvas.ToolText:
		size := math.Max(width*4, 12) * p.scale / 0.3528
		p.pdf.SetFont("Helvetica", "", size)
		p.pdf.Text(p.x(first.X), p.y(first.Y), p.tr(a.Text))
	}
}

func (p *painter) line(a, b canvas.Point) {
	p.pdf.Line(p.x(a.X), p.y(a.Y), p.x(b.X), p.y(b.Y))
}

func (p *painter) polyline(points []canvas.Point) {
	for i := 1; i < len(points); i++ {
		p.line(points[i-1], points[i])
	}
}

func (p *painter) polygon(points []canvas.Point, style string) {
	pts := make([]gofpdf.PointType, len(points))
	for i, pt := range points {
		pts[i] = gofpdf.PointType{X: p.x(pt.X), Y: p.y(pt.Y)}
	}
	p.pdf.Polygon(pts, style)
}

func (p *painter) arrowHead(from, to canvas.Point) {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	for _, side := range []float64{-math.Pi / 6, math.Pi / 6} {
		p.line(to, canvas.Point{
			X: to.X - arrowLength*math.Cos(angle+side),
			Y: to.Y - arrowLength*math.Sin(angle+side),
		})
	}
}

// parseColor reads #rgb and #rrggbb colors. Anything else is drawn black.
func parseColor(s string) rgb {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return black
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return black
	}
	return rgb{int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)}
}
