package render

import (
	"strings"
	"unicode/utf8"
)

// LineKind is the layout role of one line of resume text.
type LineKind int

const (
	KindSpacer LineKind = iota
	KindSectionHeader
	KindBullet
	KindParagraph
	KindContact
	KindBody
)

func (k LineKind) String() string {
	switch k {
	case KindSpacer:
		return "spacer"
	case KindSectionHeader:
		return "section_header"
	case KindBullet:
		return "bullet"
	case KindParagraph:
		return "paragraph"
	case KindContact:
		return "contact"
	case KindBody:
		return "body"
	}
	return "unknown"
}

const (
	maxHeaderLength   = 30
	paragraphMinChars = 101
	bulletGlyph       = "•"
)

var sectionKeywords = []string{
	"SUMMARY", "PROFILE", "OBJECTIVE", "EXPERIENCE", "EMPLOYMENT",
	"WORK EXPERIENCE", "PROFESSIONAL EXPERIENCE", "EDUCATION",
	"SKILLS", "TECHNICAL SKILLS", "CORE COMPETENCIES", "CERTIFICATIONS",
	"ACHIEVEMENTS", "PROJECTS", "CONTACT", "PERSONAL DETAILS",
}

var bulletMarkers = []string{"•", "-", "*"}

// Line is a classified line ready for layout.
type Line struct {
	Kind LineKind
	Text string
}

// Classify splits text into lines and assigns each a layout role. Lines are
// trimmed; header text is uppercased and bullet markers are stripped.
func Classify(text string) []Line {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	inSection := false

	for _, l := range raw {
		l = strings.TrimSpace(l)

		switch {
		case l == "":
			lines = append(lines, Line{Kind: KindSpacer})
		case IsSectionHeader(l):
			lines = append(lines, Line{Kind: KindSectionHeader, Text: strings.ToUpper(l)})
			inSection = true
		case hasBulletMarker(l):
			_, size := utf8.DecodeRuneInString(l)
			lines = append(lines, Line{Kind: KindBullet, Text: strings.TrimSpace(l[size:])})
		case utf8.RuneCountInString(l) >= paragraphMinChars:
			lines = append(lines, Line{Kind: KindParagraph, Text: l})
		case !inSection:
			lines = append(lines, Line{Kind: KindContact, Text: l})
		default:
			lines = append(lines, Line{Kind: KindBody, Text: l})
		}
	}
	return lines
}

// IsSectionHeader reports whether a short line names a standard resume section.
func IsSectionHeader(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	if upper == "" || utf8.RuneCountInString(upper) > maxHeaderLength {
		return false
	}
	for _, kw := range sectionKeywords {
		if upper == kw || strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func hasBulletMarker(line string) bool {
	for _, m := range bulletMarkers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}
