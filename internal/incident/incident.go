package incident

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxBytes caps how much incident text is read from a file or stdin.
const maxBytes = 1 << 20

// ErrEmpty is returned when the incident text is blank.
var ErrEmpty = errors.New("incident description is empty")

// Incident is a loaded incident description with derived metadata.
type Incident struct {
	Source    string // file path, "stdin" or "argument"
	Hash      string // "sha256:<hex>" of Text
	Text      string // surrounding whitespace trimmed
	LineCount int
}

// Load reads an incident description from path. A path of "-" reads stdin.
func Load(path string) (*Incident, error) {
	if path == "-" {
		return Read("stdin", os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading incident file: %w", err)
	}
	defer f.Close()
	return Read(path, f)
}

// Read loads an incident description from r, labelled with source.
func Read(source string, r io.Reader) (*Incident, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading incident from %s: %w", source, err)
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("incident from %s exceeds %d bytes", source, maxBytes)
	}
	return newIncident(source, string(data))
}

// FromText wraps text passed directly on the command line.
func FromText(text string) (*Incident, error) {
	return newIncident("argument", text)
}

func newIncident(source, raw string) (*Incident, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrEmpty)
	}
	sum := sha256.Sum256([]byte(text))
	return &Incident{
		Source:    source,
		Hash:      fmt.Sprintf("sha256:%x", sum),
		Text:      text,
		LineCount: strings.Count(text, "\n") + 1,
	}, nil
}
