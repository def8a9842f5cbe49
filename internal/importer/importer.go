package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/noterag/internal/docreader"
	"github.com/xxxsen/noterag/internal/model"
	"go.uber.org/zap"
)

const (
	leadHeading     = "Introduction"
	fallbackHeading = "Document Content"
)

// ParagraphReader returns the body paragraphs of a document on disk.
type ParagraphReader func(path string) ([]docreader.Paragraph, error)

// Importer turns word-processor documents into section artifacts.
type Importer struct {
	read ParagraphReader
}

func New(read ParagraphReader) *Importer {
	if read == nil {
		read = docreader.Read
	}
	return &Importer{read: read}
}

// ImportFile reads one document and produces its section artifact. The
// source file name is recorded without its directory.
func (im *Importer) ImportFile(ctx context.Context, path string) (*model.DocumentFile, error) {
	paras, err := im.read(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	sections, err := ExtractSections(paras)
	if err != nil {
		return nil, fmt.Errorf("extract sections: %w", err)
	}
	logutil.GetLogger(ctx).Debug("document imported",
		zap.String("file", filepath.Base(path)), zap.Int("sections", len(sections)))
	return &model.DocumentFile{
		SourceFile:    filepath.Base(path),
		ProcessedDate: time.Now().Format(time.RFC3339),
		NumSections:   len(sections),
		Sections:      sections,
	}, nil
}

// ExtractSections groups paragraphs under their headings. Text before
// the first heading lands in a level-0 "Introduction" section, and
// sections that end up with no body text are dropped. A document that
// yields no sections at all collapses into a single "Document Content"
// section holding every non-blank paragraph.
func ExtractSections(paras []docreader.Paragraph) ([]model.Section, error) {
	var sections []model.Section
	cur := model.Section{Heading: leadHeading, Level: 0}
	var content []string
	flush := func() {
		if len(content) == 0 {
			return
		}
		cur.Text = strings.Join(content, "\n")
		sections = append(sections, cur)
		content = nil
	}
	for _, para := range paras {
		text := strings.TrimSpace(para.Text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(para.Style, "Heading") {
			level, err := headingLevel(para.Style)
			if err != nil {
				return nil, err
			}
			flush()
			cur = model.Section{Heading: text, Level: level}
			continue
		}
		content = append(content, text)
	}
	flush()
	if len(sections) == 0 {
		var all []string
		for _, para := range paras {
			if text := strings.TrimSpace(para.Text); text != "" {
				all = append(all, text)
			}
		}
		sections = append(sections, model.Section{
			Heading: fallbackHeading,
			Level:   1,
			Text:    strings.Join(all, "\n\n"),
		})
	}
	return sections, nil
}

// headingLevel parses the numeric suffix of a heading style; the bare
// "Heading" style counts as level 1.
func headingLevel(style string) (int, error) {
	if style == "Heading" {
		return 1, nil
	}
	level, err := strconv.Atoi(strings.ReplaceAll(style, "Heading ", ""))
	if err != nil {
		return 0, fmt.Errorf("unrecognized heading style %q", style)
	}
	return level, nil
}
