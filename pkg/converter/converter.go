package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatText    Format = "txt"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	case ".txt", ".text":
		return FormatText
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	// Standard MIDI Files start with the "MThd" header chunk
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	return FormatUnknown
}

// Convert converts MIDI data to the given output format. MIDI output is the score
// written back out, normalised by quantisation and the notation settings; text
// output is the indented element dump of the score.
func (c *Converter) Convert(data []byte, to Format) ([]byte, error) {
	if f := DetectFormatFromContent(data); f != FormatMIDI {
		return nil, fmt.Errorf("unsupported input format: %s", f)
	}
	song, err := c.ReadSong(data)
	if err != nil {
		return nil, err
	}
	switch to {
	case FormatMIDI:
		return c.WriteSong(song)
	case FormatText:
		return []byte(song.Score.Text()), nil
	default:
		return nil, fmt.Errorf("unsupported conversion: %s to %s", FormatMIDI, to)
	}
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) (*ConversionResult, error) {
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return nil, errors.New("cannot determine output format from filename")
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	if inputFormat != FormatMIDI {
		return nil, fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}

	out, err := c.Convert(data, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	return &ConversionResult{Data: out, Filename: outputPath, Format: outputFormat}, nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> midi",
		"midi -> txt",
	}
}
