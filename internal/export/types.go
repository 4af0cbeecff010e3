// Package export renders self-introduction documents into PDF and DOCX files.
package export

import (
	"errors"
	"fmt"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Question is one prompt of a document together with the user's answer.
type Question struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Content  string `json:"content"`
}

// Document is the in-memory document handed to the pipeline.
type Document struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Request contains parameters for an export operation
type Request struct {
	Document Document
	Format   Format
	// UserID scopes the busy guard and is passed to sinks.
	UserID string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	Pages    int
}

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	// ErrBusy is returned while the same user already has an export running.
	ErrBusy = errors.New("export already in progress")
)

// ValidationError rejects a document before any rendering work starts.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RenderingError wraps a failure after validation passed. The caller should
// show a retry message.
type RenderingError struct {
	Format Format
	Err    error
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderingError) Unwrap() error {
	return e.Err
}
