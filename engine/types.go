// Package engine turns metronome ticks into sample-exact audio on two
// output tracks: a main track for short clicks and a long track that lets
// a strong sound ring until the next strong beat.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"tack/sample"
)

const SampleRate = sample.SampleRate

var (
	ErrHardwareWrite = errors.New("hardware write failed")
	ErrInvalidTick   = errors.New("invalid tick")
)

type Accent string

const (
	Strong Accent = "strong"
	Normal Accent = "normal"
	Sub    Accent = "sub"
	Muted  Accent = "muted"
)

func ParseAccent(s string) (Accent, error) {
	switch a := Accent(strings.ToLower(strings.TrimSpace(s))); a {
	case Strong, Normal, Sub, Muted:
		return a, nil
	}
	return "", fmt.Errorf("unknown accent %q", s)
}

// ParsePattern reads a comma separated accent list such as
// "strong,normal,normal,normal".
func ParsePattern(s string) ([]Accent, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	parts := strings.Split(s, ",")
	pattern := make([]Accent, 0, len(parts))
	for _, p := range parts {
		a, err := ParseAccent(p)
		if err != nil {
			return nil, err
		}
		pattern = append(pattern, a)
	}
	return pattern, nil
}

func FormatPattern(p []Accent) string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

// Tick is one click request. Beat is 1-based within the bar; Subdivision
// is 1 for the beat itself and counts up for the clicks between beats.
type Tick struct {
	Type        Accent
	Beat        int
	Subdivision int
}

func (t Tick) String() string {
	return fmt.Sprintf("%s@%d.%d", t.Type, t.Beat, t.Subdivision)
}

type Track int

const (
	Main Track = iota
	Long
)

func (t Track) String() string {
	if t == Long {
		return "long"
	}
	return "main"
}
