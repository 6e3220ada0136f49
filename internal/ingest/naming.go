package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceInfo holds the fields encoded in a corpus file name.
type SourceInfo struct {
	Subject      string
	SubjectLabel string
	Grade        string
	Title        string
}

var subjectLabels = map[string]string{
	"math": "Mathematics",
	"phys": "Physics",
	"chem": "Chemistry",
	"biol": "Biology",
	"hist": "History",
	"geo":  "Geography",
	"eng":  "English",
	"lit":  "Literature",
	"cs":   "Computer Science",
}

// ParseFileName interprets the corpus naming convention
// <subject>-<grade>[-<topic-words>].pdf, e.g. "math-7-fractions-basics.pdf".
// Unknown subject codes keep the code itself as the label.
func ParseFileName(name string) (SourceInfo, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "-")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return SourceInfo{}, fmt.Errorf("file name %q does not match <subject>-<grade>[-<topic>].pdf", name)
	}
	subject := strings.ToLower(parts[0])
	grade := parts[1]
	label, ok := subjectLabels[subject]
	if !ok {
		label = capitalize(subject)
	}
	title := fmt.Sprintf("%s, Grade %s", label, grade)
	if len(parts) > 2 {
		title += ": " + capitalize(strings.Join(parts[2:], " "))
	}
	return SourceInfo{Subject: subject, SubjectLabel: label, Grade: grade, Title: title}, nil
}

// ChunkID derives the stable chunk identity. Re-ingesting an unchanged
// source must produce identical IDs so upserts stay idempotent against the
// existing index.
func ChunkID(group, subject string, page, ordinal int) string {
	return fmt.Sprintf("%s-%s-p%03d-c%04d", group, subject, page, ordinal)
}

// EstimatePage interpolates a source page from the chunk's character offset
// relative to the total text length. Approximate: image-heavy pages skew it.
func EstimatePage(offset, totalLen, pageCount int) int {
	if totalLen <= 0 || pageCount <= 0 {
		return 1
	}
	p := offset*pageCount/totalLen + 1
	if p < 1 {
		p = 1
	}
	if p > pageCount {
		p = pageCount
	}
	return p
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
