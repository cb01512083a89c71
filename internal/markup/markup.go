// Package markup parses the plain-text sentinel tokens embedded in generated
// documents.
//
// Grammar:
//
//	token     = "[" name ":" payload "]"
//	name      = "SIGNATURE_FIELD" | "CITATION"
//	payload   = 1*( any char except "[" and "]" )
//
// A CITATION payload is "Title|Source" with both parts non-empty. Anything
// that does not parse as a known token, including unknown names and
// unbalanced brackets, is kept as literal text.
package markup

import (
	"regexp"
	"strings"
)

// Kind of segment
type Kind int

const (
	KindText Kind = iota
	KindSignature
	KindCitation
)

// Segment is one piece of parsed text.
type Segment struct {
	Kind   Kind
	Text   string // literal text, or the raw token for non-text segments
	Label  string // SIGNATURE_FIELD
	Title  string // CITATION
	Source string // CITATION
}

var tokenRe = regexp.MustCompile(`\[([A-Z_]+):([^\[\]]+)\]`)

// Parse splits s into literal text and recognized tokens. It never fails.
func Parse(s string) []Segment {
	var out []Segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, Segment{Kind: KindText, Text: lit.String()})
			lit.Reset()
		}
	}

	last := 0
	for _, m := range tokenRe.FindAllStringSubmatchIndex(s, -1) {
		lit.WriteString(s[last:m[0]])
		last = m[1]

		raw := s[m[0]:m[1]]
		seg, ok := parseToken(s[m[2]:m[3]], s[m[4]:m[5]], raw)
		if !ok {
			lit.WriteString(raw)
			continue
		}
		flush()
		out = append(out, seg)
	}
	lit.WriteString(s[last:])
	flush()
	return out
}

func parseToken(name, payload, raw string) (Segment, bool) {
	payload = strings.TrimSpace(payload)
	switch name {
	case "SIGNATURE_FIELD":
		if payload == "" {
			return Segment{}, false
		}
		return Segment{Kind: KindSignature, Text: raw, Label: payload}, true
	case "CITATION":
		title, source, ok := strings.Cut(payload, "|")
		title, source = strings.TrimSpace(title), strings.TrimSpace(source)
		if !ok || title == "" || source == "" {
			return Segment{}, false
		}
		return Segment{Kind: KindCitation, Text: raw, Title: title, Source: source}, true
	}
	return Segment{}, false
}

// Signature renders a signature token.
func Signature(label string) string {
	return "[SIGNATURE_FIELD:" + sanitize(label) + "]"
}

// Citation renders a citation token.
func Citation(title, source string) string {
	return "[CITATION:" + sanitize(title) + "|" + sanitize(source) + "]"
}

// SignatureLabels lists the signature fields in order of appearance.
func SignatureLabels(s string) []string {
	var labels []string
	for _, seg := range Parse(s) {
		if seg.Kind == KindSignature {
			labels = append(labels, seg.Label)
		}
	}
	return labels
}

// Plain renders tokens as human-readable text.
func Plain(s string) string {
	var b strings.Builder
	for _, seg := range Parse(s) {
		switch seg.Kind {
		case KindSignature:
			b.WriteString(seg.Label + ": ______________________")
		case KindCitation:
			b.WriteString(seg.Title + " (" + seg.Source + ")")
		default:
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

var bracketReplacer = strings.NewReplacer("[", "(", "]", ")", "|", "/")

func sanitize(s string) string {
	return bracketReplacer.Replace(strings.TrimSpace(s))
}
