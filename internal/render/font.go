package render

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

const fontFamily = "GoSans"

// Plain substitutes for symbols pasted resumes often carry.
var runeFallbacks = map[rune]string{
	'₹': "Rs.",
	'→': "->",
	'←': "<-",
	'✓': "*",
	'✔': "*",
	'★': "*",
	'▪': "•",
	'●': "•",
	'◦': "-",
	'➢': ">",
}

var (
	coverageOnce sync.Once
	coverage     *sfnt.Font
)

func regularFont() *sfnt.Font {
	coverageOnce.Do(func() {
		f, err := sfnt.Parse(goregular.TTF)
		if err == nil {
			coverage = f
		}
	})
	return coverage
}

// registerFonts embeds the Go sans family so text is not limited to cp1252.
func registerFonts(pdf *fpdf.Fpdf) {
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
}

// printable drops invisible format runes and replaces runes the embedded
// font has no glyph for, using runeFallbacks first and "?" otherwise.
func printable(s string) string {
	f := regularFont()
	if f == nil {
		return s
	}
	var buf sfnt.Buffer
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.Is(unicode.Cf, r) {
			continue
		}
		if sub, ok := runeFallbacks[r]; ok {
			b.WriteString(sub)
			continue
		}
		if idx, err := f.GlyphIndex(&buf, r); err != nil || idx == 0 {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
