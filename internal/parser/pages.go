package parser

import "strings"

const (
	// PageSeparator delimits pages in text returned by the llmwhisperer backend.
	PageSeparator = "<<<"
	// FormFeed follows PageSeparator in raw llmwhisperer output.
	FormFeed = "\f"
)

// SplitPages splits page-delimited text into trimmed page strings.
// The result always has at least one element.
func SplitPages(text string) []string {
	parts := strings.Split(text, PageSeparator)
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = strings.TrimSpace(p)
	}
	return pages
}

// SplitRawPages splits on the separator followed by a form feed, the exact
// marker llmwhisperer writes between pages. Used for per-page file export.
func SplitRawPages(text string) []string {
	parts := strings.Split(text, PageSeparator+FormFeed)
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = strings.TrimSpace(p)
	}
	return pages
}
