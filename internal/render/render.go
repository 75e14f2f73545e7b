package render

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

var ErrRenderFailed = errors.New("render failed")

// A4 layout in millimetres.
const (
	margin        = 19.05
	contactIndent = 0
	bodyIndent    = 5.08
	bulletIndent  = 7.62
	bulletGap     = 2.54
)

type rgb struct{ r, g, b int }

var (
	darkBlue  = rgb{0, 0, 139}
	lightGrey = rgb{211, 211, 211}
	black     = rgb{0, 0, 0}
)

// Renderer lays out optimized resume text as a branded A4 PDF.
type Renderer struct {
	brand string
	now   func() time.Time
}

// New returns a Renderer that stamps documents with brand.
func New(brand string) *Renderer {
	return &Renderer{brand: brand, now: time.Now}
}

// WithClock replaces the clock used for the footer timestamp.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// Render produces the PDF bytes for text. Empty or non UTF-8 input and any
// layout failure return ErrRenderFailed.
func (r *Renderer) Render(text, displayName string) (out []byte, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty resume text", ErrRenderFailed)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: resume text is not valid UTF-8", ErrRenderFailed)
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("pdf layout panic", "panic", rec)
			out, err = nil, fmt.Errorf("%w: %v", ErrRenderFailed, rec)
		}
	}()

	now := r.now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(fmt.Sprintf("ATS Resume - %s", displayName), true)
	pdf.SetAuthor(displayName, true)
	pdf.SetCreator(r.brand, true)
	pdf.SetCreationDate(now)
	registerFonts(pdf)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: load fonts: %v", ErrRenderFailed, err)
	}
	pdf.AddPage()

	l := &layout{pdf: pdf, tr: printable}
	l.header(r.brand)
	l.content(Classify(text))
	l.footer(r.brand, now)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

type layout struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (l *layout) width() float64 {
	w, _ := l.pdf.GetPageSize()
	left, _, right, _ := l.pdf.GetMargins()
	return w - left - right
}

func (l *layout) rule(thickness float64, c rgb) {
	left, _, _, _ := l.pdf.GetMargins()
	y := l.pdf.GetY()
	l.pdf.SetDrawColor(c.r, c.g, c.b)
	l.pdf.SetLineWidth(thickness)
	l.pdf.Line(left, y, left+l.width(), y)
	l.pdf.Ln(1)
}

func (l *layout) text(size float64, style string, c rgb, indent float64, align, s string) {
	left, _, _, _ := l.pdf.GetMargins()
	l.pdf.SetFont(fontFamily, style, size)
	l.pdf.SetTextColor(c.r, c.g, c.b)
	l.pdf.SetX(left + indent)
	l.pdf.MultiCell(l.width()-indent, size*0.5, l.tr(s), "", align, false)
}

func (l *layout) header(brand string) {
	l.text(10, "", black, contactIndent, "C", fmt.Sprintf("%s ATS-Optimized Professional Resume", brand))
	l.pdf.Ln(2.5)
	l.rule(0.35, lightGrey)
	l.pdf.Ln(5)
}

func (l *layout) content(lines []Line) {
	seenSection := false
	for _, line := range lines {
		switch line.Kind {
		case KindSpacer:
			l.pdf.Ln(1.3)
		case KindSectionHeader:
			if seenSection {
				l.pdf.Ln(2.5)
			}
			l.pdf.Ln(3.8)
			l.text(14, "B", darkBlue, 0, "L", line.Text)
			l.rule(0.18, lightGrey)
			l.pdf.Ln(1.5)
			seenSection = true
		case KindBullet:
			left, _, _, _ := l.pdf.GetMargins()
			l.pdf.SetFont(fontFamily, "", 10)
			l.pdf.SetTextColor(black.r, black.g, black.b)
			l.pdf.SetX(left + bulletGap)
			l.pdf.CellFormat(bulletIndent-bulletGap, 5, l.tr(bulletGlyph), "", 0, "L", false, 0, "")
			l.pdf.MultiCell(l.width()-bulletIndent, 5, l.tr(line.Text), "", "L", false)
			l.pdf.Ln(1.3)
		case KindParagraph, KindBody:
			l.text(11, "", black, bodyIndent, "L", line.Text)
			l.pdf.Ln(2)
		case KindContact:
			l.text(10, "", black, contactIndent, "C", line.Text)
			l.pdf.Ln(1)
		}
	}
}

func (l *layout) footer(brand string, now time.Time) {
	l.pdf.Ln(7.6)
	l.rule(0.18, lightGrey)
	l.text(10, "", black, contactIndent, "C",
		fmt.Sprintf("Generated on %s %s %s", now.Format("January 02, 2006"), bulletGlyph, brand))
}
