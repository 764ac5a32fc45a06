package common

import (
	"github.com/google/uuid"
)

// NewPaperID generates a unique paper ID with the "paper_" prefix
func NewPaperID() string {
	return "paper_" + uuid.New().String()
}

// NewAnnotationID generates a unique annotation ID with the "ann_" prefix
func NewAnnotationID() string {
	return "ann_" + uuid.New().String()
}

// NewSessionID generates a unique viewer session ID with the "sess_" prefix
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}
