package reporter

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// jsonReport is the document written by WriteJSON.
type jsonReport struct {
	Header   Header            `json:"header"`
	Messages []message.Message `json:"messages"`
}

// JSONReporter generates JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
	now    func() time.Time
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
		now:    time.Now,
	}
}

// Generate writes messages under a freshly stamped header.
func (r *JSONReporter) Generate(ctx context.Context, messages []message.Message) error {
	return WriteJSON(r.writer, messages, NewHeader(r.now()), r.pretty)
}

// WriteJSON writes {"header": ..., "messages": [...]} with importance and
// severity encoded by name.
func WriteJSON(w io.Writer, messages []message.Message, header Header, pretty bool) error {
	if messages == nil {
		messages = []message.Message{}
	}
	report := jsonReport{Header: header, Messages: messages}

	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(report, "", "  ")
	} else {
		output, err = json.Marshal(report)
	}

	if err != nil {
		return err
	}

	_, err = w.Write(output)
	if err != nil {
		return err
	}

	_, err = w.Write([]byte("\n"))
	return err
}
