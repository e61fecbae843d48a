package domain

// DocInfo is the document-level metadata extracted by the parsing engine.
type DocInfo struct {
	// PageCount is the number of pages.
	PageCount int `json:"page_count"`

	// Title is the document title, if present.
	Title string `json:"title,omitempty"`

	// Author is the document author, if present.
	Author string `json:"author,omitempty"`

	// Subject is the document subject, if present.
	Subject string `json:"subject,omitempty"`

	// Creator is the application that created the original document.
	Creator string `json:"creator,omitempty"`

	// Producer is the application that produced the PDF.
	Producer string `json:"producer,omitempty"`

	// CreationDate is the raw creation timestamp string.
	CreationDate string `json:"creation_date,omitempty"`

	// ModDate is the raw modification timestamp string.
	ModDate string `json:"mod_date,omitempty"`

	// Encrypted reports whether the document is encrypted.
	Encrypted bool `json:"encrypted"`
}

// PageText is the extracted text of a single page.
type PageText struct {
	// Page is the 1-based page number.
	Page int `json:"page"`

	// Text is the extracted text.
	Text string `json:"text"`
}

// TocEntry is one node of the document outline.
type TocEntry struct {
	// Title is the outline entry label.
	Title string `json:"title"`

	// Page is the 1-based target page.
	Page int `json:"page"`

	// Children are nested outline entries.
	Children []TocEntry `json:"children,omitempty"`
}

// PageImage is one image extracted from a page.
type PageImage struct {
	// Page is the 1-based page number the image appears on.
	Page int `json:"page"`

	// Name is the image resource name within the page.
	Name string `json:"name"`

	// Format is the image file type (png, jpg, tiff...).
	Format string `json:"format"`

	// Width is the pixel width, when known.
	Width int `json:"width,omitempty"`

	// Height is the pixel height, when known.
	Height int `json:"height,omitempty"`

	// Data is the raw image bytes.
	Data []byte `json:"data"`
}

// SearchMatch is a single hit from a text search over page text.
type SearchMatch struct {
	// Page is the 1-based page number of the hit.
	Page int `json:"page"`

	// Offset is the rune offset of the match within the page text.
	Offset int `json:"offset"`

	// Context is the snippet surrounding the match.
	Context string `json:"context"`
}
