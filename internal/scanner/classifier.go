package scanner

import "strings"

// Class is the classifier's verdict on a per-record error.
type Class int

const (
	// Ignorable errors are known-benign format quirks, swallowed with no
	// user-visible trace.
	Ignorable Class = iota
	// Reportable errors get one warning naming the plugin; the scan
	// continues to the next record.
	Reportable
)

// Classifier decides whether a per-record error is a known-benign format
// quirk. The pattern set is injected at construction so classification
// boundaries stay testable and configurable.
type Classifier struct {
	patterns []string
}

// NewClassifier builds a classifier from lowercase-folded substring
// patterns.
func NewClassifier(patterns []string) *Classifier {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}
	return &Classifier{patterns: lowered}
}

// Classify matches the error message against the pattern set with
// case-insensitive substring matching.
func (c *Classifier) Classify(err error) Class {
	if err == nil {
		return Ignorable
	}
	msg := strings.ToLower(err.Error())
	for _, p := range c.patterns {
		if strings.Contains(msg, p) {
			return Ignorable
		}
	}
	return Reportable
}
