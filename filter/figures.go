package filter

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// FileStatus describes illustration file referenced from a book.
type FileStatus int

const (
	FileMissing FileStatus = iota
	FileImage
	FileNotImage
)

func (s FileStatus) String() string {
	switch s {
	case FileMissing:
		return "missing"
	case FileImage:
		return "image"
	case FileNotImage:
		return "not-image"
	}
	return "unknown"
}

// MissingFunc observes figures removed from a book.
type MissingFunc func(collectionID, bookID, file string)

// Illustrations is inventory of illustrations directory. File status is
// checked once and cached, inventory is safe for concurrent use.
type Illustrations struct {
	dir string
	log *zap.Logger

	mu        sync.Mutex
	cache     map[string]FileStatus
	missing   map[string]struct{}
	onMissing MissingFunc
}

func NewIllustrations(dir string, log *zap.Logger) *Illustrations {
	return &Illustrations{
		dir:     dir,
		log:     log,
		cache:   make(map[string]FileStatus),
		missing: make(map[string]struct{}),
	}
}

// OnMissing sets observer called every time a figure is removed.
func (ill *Illustrations) OnMissing(fn MissingFunc) {
	ill.mu.Lock()
	defer ill.mu.Unlock()
	ill.onMissing = fn
}

// Dir returns illustrations directory.
func (ill *Illustrations) Dir() string {
	return ill.dir
}

// Status checks illustration file.
func (ill *Illustrations) Status(name string) FileStatus {
	ill.mu.Lock()
	defer ill.mu.Unlock()

	if st, ok := ill.cache[name]; ok {
		return st
	}
	st := ill.probe(name)
	ill.cache[name] = st
	if st == FileNotImage {
		ill.log.Warn("Illustration does not look like an image", zap.String("file", name))
	}
	return st
}

// probe treats empty names and directories as missing: such figure could
// never be displayed.
func (ill *Illustrations) probe(name string) FileStatus {
	if len(name) == 0 {
		return FileMissing
	}
	fname := filepath.Join(ill.dir, filepath.FromSlash(name))
	if fi, err := os.Stat(fname); err == nil && fi.IsDir() {
		ill.log.Debug("Illustration is a directory", zap.String("file", name))
		return FileMissing
	}
	f, err := os.Open(fname)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			ill.log.Debug("Unable to open illustration", zap.String("file", name), zap.Error(err))
		}
		return FileMissing
	}
	defer f.Close()

	// filetype needs 262 bytes of header at most
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		ill.log.Debug("Unable to read illustration", zap.String("file", name), zap.Error(err))
		return FileMissing
	}
	if filetype.IsImage(head[:n]) {
		return FileImage
	}
	return FileNotImage
}

// Missing returns names of all figures removed so far in natural order.
func (ill *Illustrations) Missing() []string {
	ill.mu.Lock()
	defer ill.mu.Unlock()

	res := make([]string, 0, len(ill.missing))
	for name := range ill.missing {
		res = append(res, name)
	}
	sort.Sort(natural.StringSlice(res))
	return res
}

var (
	reFigure    = regexp.MustCompile(`\\fig\s([^\r\n]*?)\\fig\*`)
	reFigureSrc = regexp.MustCompile(`src="([^"]+)"`)
)

// FigureSource extracts image file name from \fig marker content. Supported
// forms in order of priority: "file", `caption|src="file" ...` and
// "caption|file|...".
func FigureSource(content string) string {
	parts := strings.Split(content, "|")
	switch {
	case len(parts) < 2:
		return content
	case strings.Contains(parts[1], `src="`):
		if m := reFigureSrc.FindStringSubmatch(parts[1]); m != nil {
			return m[1]
		}
		return ""
	default:
		return parts[1]
	}
}

// RemoveMissingFigures strips \fig ... \fig* spans referencing files absent
// from illustrations directory. Spans with present files are left intact.
func (ill *Illustrations) RemoveMissingFigures(text, collectionID, bookID string) string {
	if !strings.Contains(text, `\fig`) {
		return text
	}
	return reFigure.ReplaceAllStringFunc(text, func(m string) string {
		src := FigureSource(reFigure.FindStringSubmatch(m)[1])
		if ill.Status(src) != FileMissing {
			return m
		}

		ill.mu.Lock()
		ill.missing[src] = struct{}{}
		fn := ill.onMissing
		ill.mu.Unlock()

		ill.log.Debug("Removing figure with missing illustration",
			zap.String("collection", collectionID), zap.String("book", bookID), zap.String("file", src))
		if fn != nil {
			fn(collectionID, bookID, src)
		}
		return ""
	})
}
