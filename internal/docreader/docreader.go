package docreader

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// Paragraph is one body paragraph of a document: the style name and the
// text a reader would see.
type Paragraph struct {
	Style string
	Text  string
}

// Read extracts the body paragraphs of a .docx file in document order.
// Paragraphs inside tables are skipped, matching how word processors
// enumerate body content.
func Read(path string) ([]Paragraph, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()
	return Parse(r.Editable().GetContent())
}

// Parse extracts paragraphs from the raw document.xml of a .docx file.
// Text is the concatenation of the paragraph's runs, with tabs and line
// breaks preserved.
func Parse(content string) ([]Paragraph, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		paras    []Paragraph
		cur      *Paragraph
		text     strings.Builder
		inText   bool
		tblDepth int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "p":
				if tblDepth == 0 {
					cur = &Paragraph{}
					text.Reset()
				}
			case "pStyle":
				if cur != nil {
					cur.Style = normalizeStyle(attrVal(t, "val"))
				}
			case "t":
				if cur != nil {
					inText = true
				}
			case "tab":
				if cur != nil {
					text.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
				}
			case "p":
				if cur != nil {
					cur.Text = text.String()
					paras = append(paras, *cur)
					cur = nil
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if cur != nil && inText {
				text.Write(t)
			}
		}
	}
	return paras, nil
}

func attrVal(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// normalizeStyle maps built-in style identifiers like "Heading1" to the
// display form "Heading 1" that heading levels are parsed from. Other
// styles pass through untouched.
func normalizeStyle(id string) string {
	const prefix = "Heading"
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || rest == "" || strings.HasPrefix(rest, " ") {
		return id
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return id
		}
	}
	return prefix + " " + rest
}
