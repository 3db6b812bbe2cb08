// Package filter implements text transformations applied to book sources
// before they are added to the document store.
package filter

import (
	"regexp"
)

// Func transforms book text. Collection and book ids are only used for
// diagnostics, result must not depend on them.
type Func func(text, collectionID, bookID string) string

// Chain is an ordered sequence of filters, output of each one is input of
// the next.
type Chain []Func

// New returns standard filter chain. Order is significant.
func New(ill *Illustrations) Chain {
	return Chain{
		StripStrongs,
		ReplaceVideoTags,
		ReplacePageTags,
		MarkdownToMilestones,
		ill.RemoveMissingFigures,
	}
}

// Apply runs text through all filters of the chain.
func (c Chain) Apply(text, collectionID, bookID string) string {
	for _, fn := range c {
		text = fn(text, collectionID, bookID)
	}
	return text
}

var (
	// \w word|strong="H0430"\w* and \+w word|strong="G3107"\+w*, markers
	// must agree.
	reStrongs = regexp.MustCompile(`\\w ([^|]*)\|strong="[^"]*"\\w\*|\\\+w ([^|]*)\|strong="[^"]*"\\\+w\*`)
	reVideo   = regexp.MustCompile(`\\video ([^\r\n]*)`)
	rePage    = regexp.MustCompile(`\\page ([^\r\n]*)`)
)

// StripStrongs removes Strong's number annotations leaving bare words.
func StripStrongs(text, _, _ string) string {
	return reStrongs.ReplaceAllString(text, "${1}${2}")
}

// ReplaceVideoTags turns \video directives into video milestones.
func ReplaceVideoTags(text, _, _ string) string {
	return reVideo.ReplaceAllString(text, `\zvideo-s |id="${1}"\*\zvideo-e\*`)
}

// ReplacePageTags turns \page directives into page milestones.
func ReplacePageTags(text, _, _ string) string {
	return rePage.ReplaceAllString(text, `\zpage-s |id="${1}"\*\zpage-e\*`)
}
