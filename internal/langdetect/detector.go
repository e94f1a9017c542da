package langdetect

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

const (
	// MinReliableLength is the shortest input, in non-space runes, that is run
	// through detection at all.
	MinReliableLength = 20
	sampleLength      = 1000
	shortText         = 60
)

// Detector guesses the dominant language of a text.
type Detector struct {
	catalog  *Catalog
	fallback string
}

// NewDetector returns a Detector reporting codes from catalog. fallback is used
// for short or undetectable input and must be supported.
func NewDetector(catalog *Catalog, fallback string) *Detector {
	if code, ok := catalog.Normalize(fallback); ok {
		fallback = code
	} else {
		fallback = catalog.Default
	}
	return &Detector{catalog: catalog, fallback: fallback}
}

func (d *Detector) Catalog() *Catalog {
	return d.catalog
}

func (d *Detector) Detect(text string) string {
	return d.DetectWithHint(text, "")
}

// DetectWithHint is Detect with a caller-preferred fallback, typically the
// session's response language, used when the text is too short to judge.
func (d *Detector) DetectWithHint(text, hint string) string {
	sample, letters := prepare(text)
	if letters < MinReliableLength {
		return d.fallbackFor(hint)
	}

	info := whatlanggo.Detect(sample)
	if letters < shortText && !info.IsReliable() {
		return d.fallbackFor(hint)
	}

	if code, ok := d.catalog.Normalize(info.Lang.Iso6393()); ok {
		return code
	}
	return d.fallbackFor(hint)
}

func (d *Detector) fallbackFor(hint string) string {
	if code, ok := d.catalog.Normalize(hint); ok {
		return code
	}
	return d.fallback
}

// prepare returns the first sampleLength runes and the number of non-space runes in it.
func prepare(text string) (string, int) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > sampleLength {
		runes = runes[:sampleLength]
	}
	n := 0
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return string(runes), n
}
