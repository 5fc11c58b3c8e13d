// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ManuGH/segplay/internal/catalog"
	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/telemetry"
	"github.com/ManuGH/segplay/internal/tracks"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	transcode bool
	audio     int
	asJSON    bool
}

// inspectReport is the machine readable form of an inspection.
type inspectReport struct {
	ItemID      string             `json:"itemId"`
	Name        string             `json:"name"`
	Tracks      tracks.State       `json:"tracks"`
	Plan        *playback.Plan     `json:"plan,omitempty"`
	Error       *inspectError      `json:"error,omitempty"`
	Fonts       []string           `json:"fonts,omitempty"`
	Preferences tracks.Preferences `json:"preferences"`
}

type inspectError struct {
	Kind        playback.ErrorKind `json:"kind"`
	Message     string             `json:"message"`
	Recoverable bool               `json:"recoverable"`
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{audio: -1}
	cmd := &cobra.Command{
		Use:   "inspect <itemId>",
		Short: "Resolve an item and show its tracks and delivery plan",
		Long: "Fetch an item from the media server, derive the default audio and subtitle\n" +
			"selection from the configured preferences and ask the server for a\n" +
			"delivery plan, exactly as a playback load would.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), root, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.transcode, "transcode", false, "request a transcoded plan")
	cmd.Flags().IntVar(&opts.audio, "audio", -1, "audio stream index to resolve with (default: derived selection)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runInspect(ctx context.Context, out io.Writer, root *rootOptions, opts *inspectOptions, itemID string) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	logger := log.WithComponent("cli")

	provider, err := telemetry.NewProvider(ctx, cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	client, err := catalog.New(catalog.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	item, err := client.Item(ctx, itemID)
	if err != nil {
		return fmt.Errorf("fetch item %s: %w", itemID, err)
	}

	prefs := cfg.Preferences.TrackPreferences()
	report := inspectReport{
		ItemID:      item.ID,
		Name:        item.Name,
		Tracks:      tracks.Derive(item, prefs, tracks.Pick{}, tracks.Pick{}),
		Fonts:       client.EmbeddedFonts(item),
		Preferences: prefs,
	}

	audio := report.Tracks.ActiveAudioIndex
	if opts.audio >= 0 {
		if _, ok := tracks.Find(opts.audio, report.Tracks.AudioTracks); !ok {
			return fmt.Errorf("item %s has no audio stream %d", itemID, opts.audio)
		}
		audio = &opts.audio
	}

	selector := playback.NewSelector(client, cfg.Playback.ResolveTimeout)
	plan, err := selector.Select(ctx, playback.ResolveRequest{
		Item:             item,
		AudioStreamIndex: audio,
		ForceTranscode:   opts.transcode,
	}, playback.ReasonInitial)
	if err != nil {
		pe := playback.ClassifyErr(err)
		report.Error = &inspectError{Kind: pe.Kind, Message: pe.Message, Recoverable: pe.Recoverable}
		logger.Debug().Err(err).Str(log.FieldItemID, itemID).Msg("resolve failed")
	} else {
		report.Plan = &plan
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if err := printReport(out, report); err != nil {
		return err
	}
	if report.Error != nil {
		return err
	}
	return nil
}

func printReport(out io.Writer, r inspectReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Item:\t%s (%s)\n", r.Name, r.ItemID)

	fmt.Fprintln(w, "\nAudio:")
	for _, a := range r.Tracks.AudioTracks {
		fmt.Fprintf(w, " %s\t%d\t%s\t%s\t%s\n",
			marker(r.Tracks.ActiveAudioIndex, a.ServerIndex), a.ServerIndex, orDash(a.Language), a.Codec, a.DisplayTitle)
	}

	fmt.Fprintln(w, "\nSubtitles:")
	for _, s := range r.Tracks.SubtitleTracks {
		mode := "native"
		if s.RequiresCustomRendering() {
			mode = "renderer"
		}
		fmt.Fprintf(w, " %s\t%d\t%s\t%s\t%s\t%s\n",
			marker(r.Tracks.ActiveSubtitleIndex, s.ServerIndex), s.ServerIndex, orDash(s.Language), s.Format, mode, s.DisplayTitle)
	}
	if r.Tracks.ActiveSubtitleIndex == nil {
		fmt.Fprintln(w, " *\toff")
	}

	fmt.Fprintln(w, "\nPlan:")
	if r.Plan != nil {
		fmt.Fprintf(w, " strategy\t%s\n", r.Plan.Strategy)
		fmt.Fprintf(w, " url\t%s\n", r.Plan.URL)
		fmt.Fprintf(w, " play session\t%s\n", orDash(r.Plan.PlaySessionID))
		if r.Plan.Strategy == playback.StrategyTranscoded {
			fmt.Fprintf(w, " offset\t%ss\n", strconv.FormatFloat(r.Plan.TranscodeOffsetSeconds, 'f', -1, 64))
		}
	}
	if r.Error != nil {
		fmt.Fprintf(w, " error\t%s: %s\n", r.Error.Kind, r.Error.Message)
	}

	if len(r.Fonts) > 0 {
		fmt.Fprintln(w, "\nFonts:")
		for _, f := range r.Fonts {
			fmt.Fprintf(w, " %s\n", f)
		}
	}
	return w.Flush()
}

func marker(active *int, index int) string {
	if active != nil && *active == index {
		return "*"
	}
	return " "
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
