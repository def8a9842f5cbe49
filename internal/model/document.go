package model

// Section is a heading-delimited span of a source document. Level 0 marks the
// untitled lead-in before the first heading.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// DocumentFile is the per-document artifact written by the import stage.
type DocumentFile struct {
	SourceFile    string    `json:"source_file"`
	ProcessedDate string    `json:"processed_date"`
	NumSections   int       `json:"num_sections"`
	Sections      []Section `json:"sections"`
}
