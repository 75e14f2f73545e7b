package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer doc.Close()

	paragraphs, err := docxParagraphs(doc.Editable().GetContent())
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs walks word/document.xml and returns the text of each
// non-empty <w:p>, with runs concatenated.
func docxParagraphs(raw string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br":
				current.WriteString(" ")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := current.String(); strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
