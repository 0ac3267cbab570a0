package reporter

import (
	"context"
	"fmt"
	"io"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
	opts   FormatOptions
}

// NewTextReporter creates a new text reporter
func NewTextReporter(w io.Writer, opts FormatOptions) *TextReporter {
	return &TextReporter{
		writer: w,
		opts:   opts,
	}
}

// Generate formats messages and prints the report.
func (r *TextReporter) Generate(ctx context.Context, messages []message.Message) error {
	lines, err := FormatMessages(messages, r.opts)
	if err != nil {
		return fmt.Errorf("format report: %w", err)
	}
	return PrintReport(r.writer, lines)
}
