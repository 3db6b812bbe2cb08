package convert

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// languageName returns English name of the language, code itself when it
// cannot be recognized.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// renderSummary prepares table describing converted collections.
func renderSummary(out *Output) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"DocSet", "Language", "Books", "Chapters", "Not Supported", "Quizzes", "Archive", "Elapsed"})

	var size int
	for _, s := range out.DocSets {
		size += s.Archive
		tw.AppendRow(table.Row{
			s.DocSet,
			languageName(s.Language),
			strconv.Itoa(len(s.Books)),
			strconv.Itoa(s.Chapters),
			strings.Join(s.Ignored, " "),
			strings.Join(s.Quizzes, " "),
			humanize.Bytes(uint64(s.Archive)),
			s.Elapsed.Round(time.Millisecond).String(),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", humanize.Bytes(uint64(size)), ""})

	configs := make([]table.ColumnConfig, 0, 8)
	for _, n := range []int{3, 4, 7, 8} {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
