// Package main is the entry point for the scorestream CLI
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/james-see/scorestream/pkg/api"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/config"
	"github.com/james-see/scorestream/pkg/converter"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/stream"
	"github.com/james-see/scorestream/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile      string
	logLevel     string
	quantize     float64
	outputFile   string
	meterRatio   string
	meterOffset  float64
	jsonOutput   bool
	serverPort   int
	makeNotation bool

	cfg config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scorestream",
	Short: "Inspect MIDI files as scores of nested streams",
	Long: `scorestream loads standard MIDI files into scores of parts, measures, notes
and time signatures, and answers questions about them: where the barlines fall,
which notes overlap, what beat an offset lands on.

Examples:
  scorestream inspect song.mid
  scorestream measures song.mid --meter 6/8
  scorestream meter 7/8 --offset 2.5
  scorestream convert song.mid -o song.txt
  scorestream tui
  scorestream serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.mid>",
	Short: "Summarise the parts, meters and pitches of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var measuresCmd = &cobra.Command{
	Use:   "measures <input.mid>",
	Short: "Split a MIDI file into measures and list every element",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeasures,
}

var meterCmd = &cobra.Command{
	Use:   "meter <ratio>",
	Short: "Show the beat, beam and accent structure of a time signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeter,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a MIDI file to MIDI or text",
	Long:  `Reads a MIDI file and writes the format named by the output extension: .mid rewrites the quantised score, .txt writes its element dump.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Float64VarP(&quantize, "quantize", "q", 0, "Quantize grid in quarter lengths (0 keeps the configured grid)")

	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")

	measuresCmd.Flags().StringVarP(&meterRatio, "meter", "m", "", "Time signature to measure with, overriding the file's")

	meterCmd.Flags().Float64Var(&meterOffset, "offset", -1, "Offset within the bar to locate")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")
	convertCmd.Flags().BoolVar(&makeNotation, "notation", false, "Split into measures before writing")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(measuresCmd)
	rootCmd.AddCommand(meterCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file, then lets flags override it
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(cfgFile); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if quantize > 0 {
		cfg.QuantizeGrid = quantize
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	return common.SetLevel(cfg.LogLevel)
}

func newConverter() *converter.Converter {
	return converter.New(cfg.Converter())
}

func runInspect(cmd *cobra.Command, args []string) error {
	score, err := newConverter().ParseMIDIFile(args[0])
	if err != nil {
		return err
	}
	sum := converter.Summarize(score)
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(out, sum)
	return nil
}

func printSummary(w io.Writer, sum converter.Summary) {
	fmt.Fprintf(w, "Length:   %v quarters\n", sum.Length)
	fmt.Fprintf(w, "Meters:   %s\n", strings.Join(sum.TimeSignatures, ", "))
	fmt.Fprintf(w, "Overlaps: %d\n", sum.Overlaps)
	for i, p := range sum.Parts {
		name := p.ID
		if name == "" {
			name = fmt.Sprintf("Part %d", i+1)
		}
		fmt.Fprintf(w, "\n%s\n", name)
		fmt.Fprintf(w, "  notes %d, rests %d, %s clef, %v quarters\n", p.Notes, p.Rests, p.Clef, p.Length)
		if p.Pitches.Count > 0 {
			fmt.Fprintf(w, "  range %s-%s, mean MIDI %.1f, spread %.1f\n",
				p.Pitches.Lowest, p.Pitches.Highest, p.Pitches.Mean, p.Pitches.StdDev)
		}
	}
}

func runMeasures(cmd *cobra.Command, args []string) error {
	score, err := newConverter().ParseMIDIFile(args[0])
	if err != nil {
		return err
	}
	var meters *stream.Stream
	if meterRatio != "" {
		ts, err := meter.NewTimeSignature(meterRatio)
		if err != nil {
			return err
		}
		meters = stream.New()
		if err := meters.Insert(0, ts); err != nil {
			return err
		}
	}
	measured, err := score.MakeNotation(meters)
	if err != nil {
		return err
	}
	return measured.Show(cmd.OutOrStdout())
}

func runMeter(cmd *cobra.Command, args []string) error {
	ts, err := meter.NewTimeSignature(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %v quarters, %d beats", ts.Ratio(), ts.BarDuration(), ts.BeatCount())
	if ts.IsCompound() {
		fmt.Fprint(out, " (compound)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "beat:   %s\n", ts.BeatSequence())
	fmt.Fprintf(out, "beam:   %s\n", ts.BeamSequence())
	fmt.Fprintf(out, "accent: %s\n", ts.AccentSequence())

	offsets := []float64{meterOffset}
	if meterOffset < 0 {
		offsets = nil
		for _, sp := range ts.BeatSequence().Spans() {
			offsets = append(offsets, sp.Start)
		}
	}
	for _, off := range offsets {
		beat, err := ts.GetBeatProportion(off)
		if err != nil {
			return err
		}
		depth, err := ts.GetBeatDepth(off)
		if err != nil {
			return err
		}
		weight, err := ts.GetAccentWeight(off)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "offset %v: beat %v, depth %d, accent %v\n", off, beat, depth, weight)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	if makeNotation {
		cfg.MakeNotation = true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converting %s -> %s\n", input, outputFile)
	if _, err := newConverter().ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Conversion complete!")
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(newConverter())
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)
	return api.StartServer(cfg)
}
