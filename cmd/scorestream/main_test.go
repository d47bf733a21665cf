package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/scorestream/pkg/converter"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/stream"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func songFile(t *testing.T) string {
	t.Helper()
	s := stream.New()
	require.NoError(t, s.Insert(0, meter.MustTimeSignature("3/4")))
	require.NoError(t, s.Append(note.MustNew("A3", 1), note.MustNew("C4", 1), note.MustNew("E4", 2)))
	data, err := converter.New(converter.DefaultOptions()).GenerateMIDI(s)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "song.mid")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestMeterCommand(t *testing.T) {
	meterOffset = -1
	out, err := execute(t, "meter", "6/8")
	require.NoError(t, err)
	assert.Contains(t, out, "6/8: 3 quarters, 2 beats (compound)")
	assert.Contains(t, out, "offset 0: beat 1,")
	assert.Contains(t, out, "offset 1.5: beat 2,")

	out, err = execute(t, "meter", "3/4", "--offset", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "offset 1.5: beat 2.5,")
	meterOffset = -1

	_, err = execute(t, "meter", "3/5")
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	file := songFile(t)
	jsonOutput = false
	out, err := execute(t, "inspect", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Meters:   3/4")
	assert.Contains(t, out, "notes 3, rests 0")
	assert.Contains(t, out, "range A3-E4")

	out, err = execute(t, "inspect", file, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"timeSignatures": [`)
	jsonOutput = false
}

func TestMeasuresCommand(t *testing.T) {
	file := songFile(t)
	meterRatio = ""
	out, err := execute(t, "measures", file)
	require.NoError(t, err)
	assert.Contains(t, out, "<Measure 2,")
	assert.NotContains(t, out, "<Measure 3,")

	out, err = execute(t, "measures", file, "--meter", "2/4")
	require.NoError(t, err)
	assert.Contains(t, out, "<Measure 2,")
	assert.Contains(t, out, "<TimeSignature 2/4>")
	meterRatio = ""
}

func TestConvertCommand(t *testing.T) {
	file := songFile(t)
	out := filepath.Join(filepath.Dir(file), "song.txt")
	got, err := execute(t, "convert", file, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, got, "Conversion complete!")
	assert.FileExists(t, out)
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_time_signature: 5/8\nlog_level: error\n"), 0644))
	_, err := execute(t, "--config", path, "meter", "2/4")
	require.NoError(t, err)
	assert.Equal(t, "5/8", cfg.DefaultTimeSignature)
	assert.Equal(t, "error", cfg.LogLevel)
	cfgFile = ""
}
