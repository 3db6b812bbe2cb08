// Package common keeps enums shared by app definition loading and
// conversion. Run "go tool go-enum --marshal -f enums.go" after changing
// ENUM declarations.
package common

// Declared type of a book in a collection. Books without type attribute are
// scripture.
// ENUM(scripture, story, songs, audio-only, bloom-player, quiz, glossary, undefined)
type BookType string

// BookTypeFromAttr converts value of the book "type" attribute, empty value
// means scripture.
func BookTypeFromAttr(attr string) (BookType, error) {
	if attr == "" {
		return BookTypeScripture, nil
	}
	return ParseBookType(attr)
}

// Ignored reports book types conversion does not support and only tallies.
func (x BookType) Ignored() bool {
	switch x {
	case BookTypeStory, BookTypeSongs, BookTypeAudioOnly, BookTypeBloomPlayer, BookTypeUndefined:
		return true
	}
	return false
}

// HasSource reports whether book of this type must have readable source
// file in the collection directory.
func (x BookType) HasSource() bool {
	return !x.Ignored()
}
