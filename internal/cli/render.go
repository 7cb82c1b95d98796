package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/stroke"
)

// renderOpts holds options for the render command.
type renderOpts struct {
	output      string
	backgrounds string
	noCache     bool
	concurrency int
}

// renderCommand creates the render command for rasterizing letters.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{output: "."}

	cmd := &cobra.Command{
		Use:   "render [letter.json...]",
		Short: "Render letters to PNG page images",
		Long: `Render letters to one PNG per drawn page.

Pages are written as "{id}-{i}.png", where id is derived from the file name
and i counts drawn pages from zero. Use "-" to read a letter from stdin.`,
		Example: `  pictoswap render letter.json -o previews/
  pictoswap render inbox/*.json --no-cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	cmd.Flags().StringVar(&opts.backgrounds, "backgrounds", "", "directory of extra stationery images")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 4, "letters rendered in parallel")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, paths []string, opts renderOpts) error {
	ctx := cmd.Context()

	docs := make([]letter.Document, len(paths))
	for i, path := range paths {
		doc, err := readLetter(path)
		if err != nil {
			return err
		}
		docs[i] = doc
	}
	ids := letterIDs(paths)

	runner, err := c.newRunner(opts.noCache, opts.backgrounds, opts.output)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", plural(len(docs), "letter")))
	spinner.Start()
	pages, err := runner.RenderBatch(ctx, docs, opts.concurrency)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	for i, doc := range docs {
		if len(pages[i]) == 0 {
			printWarning("%s has no drawn pages", paths[i])
			continue
		}
		names, err := runner.Publish(ctx, ids[i], pages[i])
		if err != nil {
			return fmt.Errorf("write %s: %w", paths[i], err)
		}
		printSuccess("%s", paths[i])
		for _, name := range names {
			printFile(filepath.Join(opts.output, name))
		}
		printStats(len(names), segmentCount(doc), doc.InkUsage())
	}
	prog.done(fmt.Sprintf("Rendered %s", plural(len(docs), "letter")))

	if len(paths) == 1 && paths[0] != "-" {
		printNewline()
		printNextStep("Replay it", "pictoswap play "+paths[0])
	}
	return nil
}

// readLetter reads a letter file, or stdin for "-".
func readLetter(path string) (letter.Document, error) {
	r, err := openInput(path)
	if err != nil {
		return letter.Document{}, err
	}
	defer r.Close()
	doc, err := letter.ReadJSON(r)
	if err != nil {
		return letter.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}

// letterIDs derives one preview id per path from the file name. Characters
// outside [A-Za-z0-9_-] become "-" and repeated names get a numeric suffix.
func letterIDs(paths []string) []string {
	ids := make([]string, len(paths))
	seen := make(map[string]int)
	for i, path := range paths {
		id := sanitizeID(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if path == "-" || id == "" {
			id = "letter"
		}
		seen[id]++
		if n := seen[id]; n > 1 {
			id += "_" + strconv.Itoa(n)
		}
		ids[i] = id
	}
	return ids
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '-'
	}, s)
}

// segmentCount returns the number of segments across all pages.
func segmentCount(doc letter.Document) int {
	n := 0
	for _, p := range doc.Pages {
		n += stroke.Count(p.Strokes)
	}
	return n
}
