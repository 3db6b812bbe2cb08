package common

import (
	"errors"
	"testing"
)

func TestBookTypeFromAttr(t *testing.T) {
	tests := []struct {
		attr    string
		want    BookType
		wantErr bool
	}{
		{"", BookTypeScripture, false},
		{"scripture", BookTypeScripture, false},
		{"glossary", BookTypeGlossary, false},
		{"audio-only", BookTypeAudioOnly, false},
		{"epub", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, err := BookTypeFromAttr(tt.attr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BookTypeFromAttr(%q) error = %v, wantErr %v", tt.attr, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidBookType) {
				t.Errorf("error %v does not wrap ErrInvalidBookType", err)
			}
			if got != tt.want {
				t.Errorf("BookTypeFromAttr(%q) = %q, want %q", tt.attr, got, tt.want)
			}
		})
	}
}

func TestBookTypeIgnored(t *testing.T) {
	ignored := map[BookType]bool{
		BookTypeStory:       true,
		BookTypeSongs:       true,
		BookTypeAudioOnly:   true,
		BookTypeBloomPlayer: true,
		BookTypeUndefined:   true,
	}
	for _, name := range BookTypeNames() {
		bt := BookType(name)
		if bt.Ignored() != ignored[bt] {
			t.Errorf("%s.Ignored() = %v, want %v", bt, bt.Ignored(), ignored[bt])
		}
		if bt.HasSource() == ignored[bt] {
			t.Errorf("%s.HasSource() = %v", bt, bt.HasSource())
		}
	}
}
