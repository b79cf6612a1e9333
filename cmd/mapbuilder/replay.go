package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tdmap/mapbuilder/internal/input"
	"github.com/tdmap/mapbuilder/internal/session"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Frame is one line of a replay script: the raw pointer state and the keys
// held during that frame.
type Frame struct {
	Position core.Vec2 `json:"position"`
	Down     bool      `json:"down"`
	Keys     []string  `json:"keys,omitempty"`
}

// maxFrameLine bounds a single replay line.
const maxFrameLine = 1 << 20

// ReadFrames parses a replay script. Blank lines and lines starting with
// '#' are skipped.
func ReadFrames(r io.Reader) ([]Frame, error) {
	var frames []Frame
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLine)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var f Frame
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := f.keySet(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: failed to read frames: %w", line+1, err)
	}
	return frames, nil
}

func (f Frame) keySet() (input.KeySet, error) {
	set := input.KeySet{}
	for _, name := range f.Keys {
		k, ok := input.ParseKey(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		set[k] = true
	}
	return set, nil
}

// ReplaySummary counts what a replay did.
type ReplaySummary struct {
	Frames   int
	Saves    int
	Undos    int
	Redos    int
	Failures int
}

// Replay feeds frames through the input trackers into the session, then
// commits whatever is left unsaved once the pointer is up.
func Replay(ctx context.Context, sess *session.Session, frames []Frame, threshold float64) ReplaySummary {
	ptr := input.NewPointer(threshold)
	kb := input.NewKeyboard()

	var sum ReplaySummary
	count := func(res session.StepResult) {
		sum.Frames++
		if res.Saved {
			sum.Saves++
		}
		if res.Undone {
			sum.Undos++
		}
		if res.Redone {
			sum.Redos++
		}
		if res.Err != nil {
			sum.Failures++
		}
	}

	last := core.Vec2{}
	for _, f := range frames {
		keys, _ := f.keySet()
		count(sess.Step(ctx, kb.Update(keys), ptr.Update(f.Position, f.Down)))
		last = f.Position
	}

	if sess.Options().HasUnsavedChanges && !ptr.State().Pressed {
		flush := kb.Update(input.KeySet{input.KeyCtrl: true, input.KeyS: true})
		count(sess.Step(ctx, flush, ptr.Update(last, false)))
	}
	return sum
}
