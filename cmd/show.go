package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jaki95/djtrack/internal/audio"
	"github.com/jaki95/djtrack/internal/cue"
	"github.com/spf13/cobra"
)

const fallback = "<unset>"

func orFallback(value string) string {
	if value == "" {
		return fallback
	}
	return value
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List the tracks of the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracks, err := application.Library.Tracks(cmd.Context())
		if err != nil {
			return err
		}
		table := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(table, "ID\tBPM\tARTIST\tTITLE\tLOCATION")
		for _, t := range tracks {
			fmt.Fprintf(table, "%s\t%.2f\t%s\t%s\t%s\n", t.ID, t.Bpm, t.Artist, t.Title, t.Location)
		}
		return table.Flush()
	},
}

var cmdShow = &cobra.Command{
	Use:   "show <id|file>",
	Short: "Show the metadata of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := resolveTrack(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		bpm := fallback
		if v := tr.Bpm(); v.IsValid() {
			bpm = v.String()
			if tr.IsBpmLocked() {
				bpm += " (locked)"
			}
		}
		synchronized := fallback
		if tr.IsSourceSynchronized() {
			synchronized = tr.SourceSynchronizedAt().Local().Format("2006-01-02 15:04:05")
		}

		table := tabwriter.NewWriter(os.Stdout, 0, 0, 0, ' ', tabwriter.AlignRight)
		fmt.Fprintln(table, "ID\t", tr.ID())
		fmt.Fprintln(table, "Location\t", tr.Location())
		fmt.Fprintln(table, "Artist\t", orFallback(tr.Artist()))
		fmt.Fprintln(table, "Title\t", orFallback(tr.Title()))
		fmt.Fprintln(table, "Album\t", orFallback(tr.Album()))
		fmt.Fprintln(table, "Genre\t", orFallback(tr.Genre()))
		fmt.Fprintln(table, "Year\t", orFallback(tr.Year()))
		fmt.Fprintln(table, "BPM\t", bpm)
		fmt.Fprintln(table, "Key\t", orFallback(tr.KeyText()))
		colorText := fallback
		if rgb := tr.Color(); rgb.IsSet() {
			colorText = rgb.String()
		}
		fmt.Fprintln(table, "Color\t", colorText)
		fmt.Fprintln(table, "Duration\t", tr.DurationText(audio.PrecisionSeconds))
		fmt.Fprintln(table, "Bitrate\t", orFallback(tr.BitrateText()))
		fmt.Fprintln(table, "Synchronized\t", synchronized)
		for _, c := range tr.CuePoints() {
			label := c.Type().String()
			if c.HotCueIndex() != cue.NoHotCue {
				label = fmt.Sprintf("%s %d", label, c.HotCueIndex()+1)
			}
			fmt.Fprintf(table, "Cue\t %s at %s %s\n", label, c.Position(), c.Label())
		}
		return table.Flush()
	},
}

func init() {
	cmdRoot.AddCommand(cmdList, cmdShow)
}
