package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/pkg/ink"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// pageStats summarises one page of a letter.
type pageStats struct {
	Page     int
	Strokes  int
	Dots     int
	Lines    int
	Ink      float64
	Colours  int
	Previews int // preview index, -1 for an empty page
}

// letterStats computes per-page statistics. Preview indices follow the
// order of drawn pages.
func letterStats(doc letter.Document) []pageStats {
	out := make([]pageStats, len(doc.Pages))
	next := 0
	for i, p := range doc.Pages {
		s := pageStats{Page: i, Strokes: len(p.Strokes), Ink: p.InkUsage, Previews: -1}
		colours := make(map[stroke.Colour]struct{})
		for _, st := range p.Strokes {
			for _, seg := range st {
				switch seg.Kind {
				case stroke.Dot:
					s.Dots++
				case stroke.Line:
					s.Lines++
				}
				colours[seg.Colour] = struct{}{}
			}
		}
		s.Colours = len(colours)
		if !p.IsEmpty() {
			s.Previews = next
			next++
		}
		out[i] = s
	}
	return out
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [letter.json]",
		Short: "Show the pages, strokes and ink of a letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readLetter(args[0])
			if err != nil {
				return err
			}
			printKeyValue("Background", doc.Background)
			printKeyValue("Ink", fmt.Sprintf("%.0f / %d", doc.InkUsage(), ink.DefaultMax))
			printKeyValue("Drawn pages", strconv.Itoa(len(doc.NonEmpty())))
			printNewline()
			fmt.Println(inspectTable(doc))
			if doc.InkUsage() > ink.DefaultMax {
				printWarning("letter uses more ink than a new letter allows")
			}
			return nil
		},
	}
}

// inspectTable renders the per-page statistics of doc.
func inspectTable(doc letter.Document) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	stats := letterStats(doc)

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		preview := "-"
		if s.Previews >= 0 {
			preview = strconv.Itoa(s.Previews)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Page),
			preview,
			strconv.Itoa(s.Strokes),
			strconv.Itoa(s.Dots),
			strconv.Itoa(s.Lines),
			fmt.Sprintf("%.1f", s.Ink),
			strconv.Itoa(s.Colours),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Page", "Preview", "Strokes", "Dots", "Lines", "Ink", "Colours").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(stats) && stats[row].Previews < 0 {
				return StyleDim
			}
			if col == 5 {
				return StyleNumber
			}
			return StyleValue
		})
	return t.Render()
}
