package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"framepace", "--quiet"}, args...))
	return out.String(), err
}

func TestSynthProbePlay(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")
	frames := filepath.Join(dir, "frames")
	summary := filepath.Join(dir, "report.json")

	_, err := run(t, "synth", "--width", "32", "--height", "16", "--frames", "3", "--audio", clip)
	require.NoError(t, err)

	out, err := run(t, "probe", clip)
	require.NoError(t, err)
	assert.Contains(t, out, "mp4")
	assert.Contains(t, out, "mjpeg 32x16")
	assert.Contains(t, out, "1/90000")

	_, err = run(t, "play", "--no-pace", "--sink", "png", "--out", frames,
		"--report", summary, "--report-format", "json", clip)
	require.NoError(t, err)

	entries, err := os.ReadDir(frames)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"framesDelivered": 3`)
}

func TestSynthProgressiveWithAudio(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")

	_, err := run(t, "synth", "--width", "32", "--height", "16", "--frames", "4", "--audio", "--progressive", clip)
	require.NoError(t, err)

	out, err := run(t, "probe", clip)
	require.NoError(t, err)
	assert.Contains(t, out, "audio/unknown,video/mjpeg")
	assert.Contains(t, out, "#1 mjpeg 32x16")

	_, err = run(t, "play", "--no-pace", "--sink", "png", "--out", filepath.Join(dir, "frames"), clip)
	require.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(dir, "frames"))
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestProbeReportsFailures(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.bin")
	require.NoError(t, os.WriteFile(junk, []byte("not a video"), 0o644))

	out, err := run(t, "probe", junk)
	require.Error(t, err)
	assert.Contains(t, out, "junk.bin")
}

func TestPlayRequiresOneFile(t *testing.T) {
	_, err := run(t, "play")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}
