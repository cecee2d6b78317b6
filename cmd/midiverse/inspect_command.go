package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/midiverse/internal/domain/midifile"
	"github.com/okian/midiverse/internal/domain/wav"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe a MIDI file or a rendered WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if bytes.HasPrefix(raw, []byte("RIFF")) {
				return inspectWAV(out, raw)
			}
			return inspectMIDI(out, raw)
		},
	}
}

func inspectMIDI(out io.Writer, raw []byte) error {
	doc, err := midifile.Parse(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "format:         %d\n", doc.Format)
	fmt.Fprintf(out, "tracks:         %d declared, %d found\n", doc.TrackCount, len(doc.Tracks))
	fmt.Fprintf(out, "ticks per beat: %d\n", doc.TicksPerBeat)
	fmt.Fprintf(out, "header length:  %d\n", doc.HeaderLength)

	if len(doc.Tracks) > 0 {
		rows := make([][]string, 0, len(doc.Tracks))
		for i, tr := range doc.Tracks {
			rows = append(rows, []string{
				strconv.Itoa(i),
				strconv.Itoa(tr.Offset),
				strconv.FormatUint(uint64(tr.Length), 10),
				strconv.FormatBool(tr.Truncated),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(out, []string{"Track", "Offset", "Length", "Truncated"}, rows, 1, 2, 3))
	}

	if len(doc.Warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "warnings (%d):\n", len(doc.Warnings))
		for _, w := range doc.Warnings {
			fmt.Fprintf(out, "  %s\n", w)
		}
	}
	return nil
}

func inspectWAV(out io.Writer, raw []byte) error {
	h, err := wav.DecodeHeader(raw)
	if err != nil {
		return err
	}
	frames := 0
	if h.BlockAlign > 0 {
		frames = int(h.DataSize) / int(h.BlockAlign)
	}
	seconds := 0.0
	if h.SampleRate > 0 {
		seconds = float64(frames) / float64(h.SampleRate)
	}

	rows := [][]string{
		{"audio format", strconv.Itoa(int(h.AudioFormat))},
		{"channels", strconv.Itoa(int(h.Channels))},
		{"sample rate", strconv.FormatUint(uint64(h.SampleRate), 10)},
		{"bits per sample", strconv.Itoa(int(h.BitsPerSample))},
		{"byte rate", strconv.FormatUint(uint64(h.ByteRate), 10)},
		{"block align", strconv.Itoa(int(h.BlockAlign))},
		{"data bytes", strconv.FormatUint(uint64(h.DataSize), 10)},
		{"frames", strconv.Itoa(frames)},
		{"duration", strconv.FormatFloat(seconds, 'f', 3, 64) + "s"},
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, 2))
	return nil
}
