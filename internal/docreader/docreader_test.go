package docreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>
    <w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>line.</w:t></w:r></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell text</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:p><w:r><w:t>After table.</w:t></w:r></w:p>
    <w:p/>
  </w:body>
</w:document>`

func TestParse(t *testing.T) {
	paras, err := Parse(sampleDocumentXML)
	require.NoError(t, err)
	require.Equal(t, []Paragraph{
		{Style: "Heading 1", Text: "Intro"},
		{Style: "", Text: "First line."},
		{Style: "", Text: "After table."},
		{Style: "", Text: ""},
	}, paras)
}

func TestParseTabsAndBreaks(t *testing.T) {
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p></w:body>
</w:document>`
	paras, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, paras, 1)
	require.Equal(t, "a\tb\nc", paras[0].Text)
}

func TestParseBadXML(t *testing.T) {
	_, err := Parse(`<w:document><w:body><w:p>`)
	require.Error(t, err)
}

func TestNormalizeStyle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Heading1", want: "Heading 1"},
		{in: "Heading10", want: "Heading 10"},
		{in: "Heading 2", want: "Heading 2"},
		{in: "Heading", want: "Heading"},
		{in: "HeadingX", want: "HeadingX"},
		{in: "BodyText", want: "BodyText"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, normalizeStyle(tt.in), tt.in)
	}
}
