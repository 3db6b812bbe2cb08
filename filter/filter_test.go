package filter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func newTestIllustrations(t *testing.T, files map[string][]byte) *Illustrations {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return NewIllustrations(dir, zaptest.NewLogger(t))
}

func TestStripStrongs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single", `\w In|strong="H0430"\w*`, "In"},
		{
			"verse",
			`\v 1  \w In|strong="H0430"\w* \w the|strong="H0853"\w* \w beginning|strong="H7225"\w*,`,
			`\v 1  In the beginning,`,
		},
		{
			"nested words of Jesus",
			`\wj  \+w Blessed|strong="G3107"\+w* \+w are|strong="G3107"\+w*,\wj*`,
			`\wj  Blessed are,\wj*`,
		},
		{"mismatched markers", `\w In|strong="H0430"\+w*`, `\w In|strong="H0430"\+w*`},
		{"no annotation", `\w word\w*`, `\w word\w*`},
		{"lemma only", `\w gracious|lemma="grace"\w*`, `\w gracious|lemma="grace"\w*`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripStrongs(tt.in, "C01", "GEN")
			if got != tt.want {
				t.Errorf("StripStrongs() = %q, want %q", got, tt.want)
			}
			if again := StripStrongs(got, "C01", "GEN"); again != got {
				t.Errorf("StripStrongs() is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestReplaceCues(t *testing.T) {
	if got, want := ReplaceVideoTags("\\video intro.mp4\n\\p text", "", ""), "\\zvideo-s |id=\"intro.mp4\"\\*\\zvideo-e\\*\n\\p text"; got != want {
		t.Errorf("ReplaceVideoTags() = %q, want %q", got, want)
	}
	if got, want := ReplacePageTags("\\page 3\r\n", "", ""), "\\zpage-s |id=\"3\"\\*\\zpage-e\\*\r\n"; got != want {
		t.Errorf("ReplacePageTags() = %q, want %q", got, want)
	}
	if got := ReplaceVideoTags(`\v 1 text`, "", ""); got != `\v 1 text` {
		t.Errorf("ReplaceVideoTags() changed text without cues: %q", got)
	}
}

func TestMarkdownToMilestones(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"web", `see [site](https://example.org/a)`, `see \zweblink-s |link="https://example.org/a"\*site\zweblink-e\*`},
		{"www", `[site](www.example.org)`, `\zweblink-s |link="www.example.org"\*site\zweblink-e\*`},
		{"email", `[write](mailto:a@b.c)`, `\zemaillink-s |link="mailto:a@b.c"\*write\zemaillink-e\*`},
		{"phone", `[call](tel:+123)`, `\ztellink-s |link="tel:+123"\*call\ztellink-e\*`},
		{"reference", `[Gen 1:1](GEN.1.1)`, `\zreflink-s |link="GEN.1.1"\*Gen 1:1\zreflink-e\*`},
		{"image", `![alt](pic.png)`, `![alt](pic.png)`},
		{"plain brackets", `[note] (text)`, `[note] (text)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownToMilestones(tt.in, "", ""); got != tt.want {
				t.Errorf("MarkdownToMilestones() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFigureSource(t *testing.T) {
	tests := map[string]string{
		"pic.jpg":                          "pic.jpg",
		`Caption|src="pic.jpg" size="col"`: "pic.jpg",
		"Caption|pic.jpg|col||||":          "pic.jpg",
		`Caption|alt="x"|src="other.jpg"`:  "alt=\"x\"",
		`Caption|src=""`:                   "",
	}
	for in, want := range tests {
		if got := FigureSource(in); got != want {
			t.Errorf("FigureSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemoveMissingFigures(t *testing.T) {
	ill := newTestIllustrations(t, map[string][]byte{
		"present.png": pngHeader,
		"notes.txt":   []byte("plain text"),
	})

	var removed []string
	ill.OnMissing(func(col, book, file string) {
		removed = append(removed, col+"/"+book+":"+file)
	})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare present", `a \fig present.png\fig* b`, `a \fig present.png\fig* b`},
		{"bare missing", `a \fig absent.png\fig* b`, `a  b`},
		{"src present", `a \fig Cap|src="present.png" size="col"\fig* b`, `a \fig Cap|src="present.png" size="col"\fig* b`},
		{"src missing", `a \fig Cap|src="gone.png" size="col"\fig* b`, `a  b`},
		{"positional present", `\fig Cap|present.png|col|||Cap|1.1\fig*`, `\fig Cap|present.png|col|||Cap|1.1\fig*`},
		{"positional missing", `x\fig Cap|lost.png|col|||Cap|1.1\fig*y`, `xy`},
		{"not an image is kept", `\fig notes.txt\fig*`, `\fig notes.txt\fig*`},
		{"lazy spans", `\fig absent.png\fig* mid \fig present.png\fig*`, ` mid \fig present.png\fig*`},
		{"no figures", `\v 1 In the beginning`, `\v 1 In the beginning`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ill.RemoveMissingFigures(tt.in, "C01", "GEN")
			if got != tt.want {
				t.Errorf("RemoveMissingFigures() = %q, want %q", got, tt.want)
			}
			if again := ill.RemoveMissingFigures(got, "C01", "GEN"); again != got {
				t.Errorf("RemoveMissingFigures() is not idempotent: %q -> %q", got, again)
			}
		})
	}

	if len(removed) != 4 || removed[0] != "C01/GEN:absent.png" {
		t.Errorf("observer calls = %v", removed)
	}
	missing := ill.Missing()
	want := []string{"absent.png", "gone.png", "lost.png"}
	if strings.Join(missing, ",") != strings.Join(want, ",") {
		t.Errorf("Missing() = %v, want %v", missing, want)
	}
}

func TestIllustrationsStatus(t *testing.T) {
	ill := newTestIllustrations(t, map[string][]byte{
		"image.png": pngHeader,
		"empty.jpg": nil,
	})
	if err := os.Mkdir(filepath.Join(ill.Dir(), "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	tests := map[string]FileStatus{
		"image.png": FileImage,
		"empty.jpg": FileNotImage,
		"none.png":  FileMissing,
		"sub":       FileMissing,
		"":          FileMissing,
	}
	for name, want := range tests {
		if got := ill.Status(name); got != want {
			t.Errorf("Status(%q) = %s, want %s", name, got, want)
		}
	}

	// cached result survives file removal
	if err := os.Remove(filepath.Join(ill.Dir(), "image.png")); err != nil {
		t.Fatal(err)
	}
	if got := ill.Status("image.png"); got != FileImage {
		t.Errorf("cached Status() = %s", got)
	}
}

func TestRemoveFiguresWithoutFile(t *testing.T) {
	ill := newTestIllustrations(t, map[string][]byte{"map.png": pngHeader})
	if err := os.Mkdir(filepath.Join(ill.Dir(), "maps"), 0755); err != nil {
		t.Fatal(err)
	}

	in := "\\v 1 a\\fig Cap|\\fig* b\\fig Cap|src=\"maps\" size=\"col\"\\fig* c\\fig Cap|map.png|col\\fig*"
	want := "\\v 1 a b c\\fig Cap|map.png|col\\fig*"
	if got := ill.RemoveMissingFigures(in, "C01", "GEN"); got != want {
		t.Errorf("RemoveMissingFigures() = %q, want %q", got, want)
	}
	if got := ill.Missing(); strings.Join(got, ",") != ",maps" {
		t.Errorf("Missing() = %q", got)
	}
}

func TestChain(t *testing.T) {
	ill := newTestIllustrations(t, map[string][]byte{"map.png": pngHeader})
	chain := New(ill)
	if len(chain) != 5 {
		t.Fatalf("chain has %d filters", len(chain))
	}

	in := "\\id GEN\n\\c 1\n\\v 1 \\w In|strong=\"H0430\"\\w* [see](https://x.org)\n\\video v1.mp4\n\\page 2\n\\fig map.png\\fig*\\fig gone.png\\fig*\n"
	want := "\\id GEN\n\\c 1\n\\v 1 In \\zweblink-s |link=\"https://x.org\"\\*see\\zweblink-e\\*\n" +
		"\\zvideo-s |id=\"v1.mp4\"\\*\\zvideo-e\\*\n\\zpage-s |id=\"2\"\\*\\zpage-e\\*\n\\fig map.png\\fig*\n"
	if got := chain.Apply(in, "C01", "GEN"); got != want {
		t.Errorf("Apply() =\n%q\nwant\n%q", got, want)
	}

	plain := "\\id GEN\n\\c 1\n\\v 1 In the beginning\n"
	if got := chain.Apply(plain, "C01", "GEN"); got != plain {
		t.Errorf("Apply() changed text without triggers: %q", got)
	}
}
