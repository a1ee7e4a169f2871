// Package testframes embeds recorded tracking sessions for tests and demos.
package testframes

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ayusman/mudra/internal/hand"
)

//go:embed frames/*.jsonl
var framesFS embed.FS

// Recordings shipped with the module.
const (
	// Session runs the built-in exercise script with the right hand.
	Session = "session"
	// Pinches is two right index pinches followed by tracking loss.
	Pinches = "pinches"
)

// Names lists the embedded recordings.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(framesFS, "frames")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, strings.TrimSuffix(e.Name(), ".jsonl"))
		}
	}
	return names, nil
}

// Bytes returns the raw JSON lines of a recording.
func Bytes(name string) ([]byte, error) {
	data, err := framesFS.ReadFile("frames/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// Source opens a recording as a replay source.
func Source(name string) (*hand.ReplaySource, error) {
	data, err := Bytes(name)
	if err != nil {
		return nil, err
	}
	return hand.NewReplaySource(bytes.NewReader(data)), nil
}

// Frames decodes every frame of a recording.
func Frames(name string) ([]hand.Frame, error) {
	data, err := Bytes(name)
	if err != nil {
		return nil, err
	}
	var frames []hand.Frame
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := hand.DecodeFrame([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, i+1, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
