package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/pkg/ink"
	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/live"
)

// traceOpts holds options for the trace command.
type traceOpts struct {
	output      string
	background  string
	backgrounds string
	ink         float64
}

// traceCommand creates the trace command, which replays recorded pointer
// events through the editor and saves the resulting letter.
func (c *CLI) traceCommand() *cobra.Command {
	opts := traceOpts{
		output:     "letter.json",
		background: letter.DefaultBackground,
		ink:        ink.DefaultMax,
	}

	cmd := &cobra.Command{
		Use:   "trace [events.jsonl]",
		Short: "Draw a letter from a recorded stream of pointer events",
		Long: `Feed a stream of JSON pointer events through the letter editor.

Each event is one object: {"type": "down"|"move"|"up", "x": .., "y": ..},
{"type": "colour", "colour": "hsl(200, 80%, 40%)"}, {"type": "page", "page": n}
or {"type": "clear", "page": n}. Samples that run out of ink are dropped
just as they are on the compose screen.`,
		Example: `  pictoswap trace session.jsonl -o letter.json
  cat session.jsonl | pictoswap trace - --ink 5000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTrace(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "letter file to write")
	cmd.Flags().StringVar(&opts.background, "background", opts.background, "stationery key")
	cmd.Flags().StringVar(&opts.backgrounds, "backgrounds", "", "directory of extra stationery images")
	cmd.Flags().Float64Var(&opts.ink, "ink", opts.ink, "ink available to the letter")

	return cmd
}

func (c *CLI) runTrace(path string, opts traceOpts) error {
	bg, err := newRenderer(opts.backgrounds).Backgrounds.Lookup(opts.background)
	if err != nil {
		return err
	}

	r, err := openInput(path)
	if err != nil {
		return err
	}
	defer r.Close()

	composer := letter.NewComposer(opts.background, letter.WithInk(opts.ink))
	editor := live.NewEditor(composer, bg, live.WithLogger(c.Logger))

	stats, err := editor.ApplyTrace(r)
	if err != nil {
		return err
	}
	doc, err := editor.Save()
	if err != nil {
		return err
	}
	if err := letter.ExportJSON(opts.output, doc); err != nil {
		return err
	}

	printSuccess("Wrote %s", opts.output)
	printKeyValue("Events", strconv.Itoa(stats.Events))
	printKeyValue("Drawn", strconv.Itoa(stats.Accepted))
	printKeyValue("Dropped", strconv.Itoa(stats.Rejected))
	printKeyValue("Ink left", fmt.Sprintf("%.0f", composer.Ink().Remaining()))
	printStats(len(doc.NonEmpty()), segmentCount(doc), doc.InkUsage())
	return nil
}
