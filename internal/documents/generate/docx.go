package generate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

const (
	docxFont      = "Arial"
	titleSize     = "32" // half-points
	bodySize      = "24"
	justifyTitle  = "center"
	justifyBodyRT = "end"
)

// renderDOCX writes one paragraph per line; the first non-empty line is the
// bold, centred title.
func renderDOCX(text string) ([]byte, error) {
	doc := docx.New().WithDefaultTheme().WithA4Page()

	titled := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		p := doc.AddParagraph()

		if !titled && strings.TrimSpace(line) != "" {
			p.Justification(justifyTitle)
			p.AddText(strings.TrimSpace(line)).Bold().Size(titleSize).Font(docxFont, docxFont, docxFont, "cs")
			titled = true
			continue
		}

		p.Justification(justifyBodyRT)
		p.AddText(line).Size(bodySize).Font(docxFont, docxFont, docxFont, "cs")
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}
