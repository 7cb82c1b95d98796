package cli

import (
	"fmt"
	"image"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/pkg/letter"
	"github.com/matzehuels/pictoswap/pkg/paint"
	"github.com/matzehuels/pictoswap/pkg/replay"
)

// playOpts holds options for the play command.
type playOpts struct {
	backgrounds string
	scale       int
	instant     bool
}

// playCommand creates the play command for replaying a letter.
func (c *CLI) playCommand() *cobra.Command {
	opts := playOpts{scale: 2}

	cmd := &cobra.Command{
		Use:   "play [letter.json]",
		Short: "Replay a letter stroke by stroke in the terminal",
		Long: `Replay a letter the way its author drew it, one drawn page after another.

Pacing comes from the [replay] section of the config file. With --instant
every page is printed once, fully drawn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			doc, err := readLetter(args[0])
			if err != nil {
				return err
			}
			dir := opts.backgrounds
			if dir == "" {
				dir = cfg.Backgrounds.Dir
			}
			bg, err := newRenderer(dir).Backgrounds.Lookup(doc.Background)
			if err != nil {
				return err
			}

			if opts.instant {
				for _, frame := range instantFrames(doc, bg, opts.scale) {
					fmt.Print(frame)
					printNewline()
				}
				return nil
			}

			m := newPlayModel(doc, bg, opts.scale,
				replay.WithSegmentDelay(cfg.Replay.SegmentDelay.Duration),
				replay.WithPenLift(cfg.Replay.PenLift.Duration),
				replay.WithPageGap(cfg.Replay.PageGap.Duration),
			)
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&opts.backgrounds, "backgrounds", "", "directory of extra stationery images")
	cmd.Flags().IntVar(&opts.scale, "scale", opts.scale, "pixels per terminal column")
	cmd.Flags().BoolVar(&opts.instant, "instant", false, "print each drawn page without animation")

	return cmd
}

// instantFrames paints every drawn page of doc at once and returns one
// terminal frame per page.
func instantFrames(doc letter.Document, bg image.Image, scale int) []string {
	canvas := paint.NewCanvas(letter.PageWidth, letter.PageHeight, paint.WithBackground(bg))
	var frames []string
	for _, i := range doc.NonEmpty() {
		replay.Instant(canvas, doc.Pages[i].Strokes)
		frames = append(frames, halfBlocks(canvas.Image(), scale))
	}
	return frames
}
