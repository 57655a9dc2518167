package recognition

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode"
)

const (
	// DefaultFilename stands in for an upload that carries no filename.
	DefaultFilename = "unknown.jpg"

	// FixedIdentifier is used by the fixed recognizer when the filename has no digits.
	FixedIdentifier = "000000000"
	// FixedName is the name segment returned by the fixed recognizer.
	FixedName = "MockUser"
	// FixedConfidence is the score returned by the fixed recognizer.
	FixedConfidence = 0.93

	// MinConfidence and MaxConfidence bound the random recognizer's score.
	MinConfidence = 0.75
	MaxConfidence = 0.98

	identifierLength = 9
	separator        = "_"
)

// Mode selects which fabrication strategy backs the recognizer.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeFixed  Mode = "fixed"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeRandom, "":
		return ModeRandom, nil
	case ModeFixed:
		return ModeFixed, nil
	default:
		return "", fmt.Errorf("unknown recognition mode %q", value)
	}
}

// Result is the fabricated recognition outcome returned to clients.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Identifier returns the student id segment of the label.
func (r Result) Identifier() string {
	id, _, _ := strings.Cut(r.Label, separator)
	return id
}

// Name returns the name segment of the label.
func (r Result) Name() string {
	_, name, _ := strings.Cut(r.Label, separator)
	return name
}

// Recognizer fabricates a result from an upload's filename.
type Recognizer interface {
	Recognize(filename string) Result
	Mode() Mode
}

// Source is the randomness consumed by the random recognizer. *rand.Rand
// from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Float64() float64
}

type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// GlobalSource returns the process-wide source, safe for concurrent use.
func GlobalSource() Source { return globalSource{} }

// New builds the recognizer for the given mode.
func New(mode Mode, src Source) (Recognizer, error) {
	switch mode {
	case ModeRandom:
		return NewRandom(src), nil
	case ModeFixed:
		return NewFixed(), nil
	default:
		return nil, fmt.Errorf("unknown recognition mode %q", mode)
	}
}

// ExtractDigits returns every decimal digit of filename in original order.
func ExtractDigits(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeFilename(filename string) string {
	if filename == "" {
		return DefaultFilename
	}
	return filename
}

func composeLabel(identifier, name string) string {
	return identifier + separator + name
}

// RandomRecognizer draws a random id, name and confidence for every call.
type RandomRecognizer struct {
	src Source
}

// NewRandom returns a RandomRecognizer. A nil src uses GlobalSource.
func NewRandom(src Source) *RandomRecognizer {
	if src == nil {
		src = GlobalSource()
	}
	return &RandomRecognizer{src: src}
}

// Mode implements Recognizer.
func (r *RandomRecognizer) Mode() Mode { return ModeRandom }

// Recognize implements Recognizer.
func (r *RandomRecognizer) Recognize(filename string) Result {
	identifier := ExtractDigits(normalizeFilename(filename))
	if identifier == "" {
		identifier = r.randomIdentifier()
	}
	return Result{
		Label:      composeLabel(identifier, r.randomName()),
		Confidence: r.randomConfidence(),
	}
}

func (r *RandomRecognizer) randomIdentifier() string {
	digits := make([]byte, identifierLength)
	for i := range digits {
		digits[i] = byte('0' + r.src.IntN(10))
	}
	return string(digits)
}

func (r *RandomRecognizer) randomName() string {
	return strings.Join([]string{
		r.pick(firstNames),
		r.pick(middleNames),
		r.pick(lastNames),
	}, " ")
}

func (r *RandomRecognizer) pick(tokens []string) string {
	return tokens[r.src.IntN(len(tokens))]
}

func (r *RandomRecognizer) randomConfidence() float64 {
	value := MinConfidence + r.src.Float64()*(MaxConfidence-MinConfidence)
	return round2(value)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// FixedRecognizer always answers with the same name and confidence, so
// repeated calls for one filename are identical.
type FixedRecognizer struct{}

// NewFixed returns a FixedRecognizer.
func NewFixed() *FixedRecognizer { return &FixedRecognizer{} }

// Mode implements Recognizer.
func (FixedRecognizer) Mode() Mode { return ModeFixed }

// Recognize implements Recognizer.
func (FixedRecognizer) Recognize(filename string) Result {
	identifier := ExtractDigits(normalizeFilename(filename))
	if identifier == "" {
		identifier = FixedIdentifier
	}
	return Result{
		Label:      composeLabel(identifier, FixedName),
		Confidence: FixedConfidence,
	}
}
