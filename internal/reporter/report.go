package reporter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// ErrReportExists is returned when a report path is taken and overwriting was not requested.
var ErrReportExists = errors.New("report file already exists")

// PrintReport writes two blank lines followed by the report lines.
func PrintReport(w io.Writer, lines []string) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(w, format, args...)
	}

	writef("\n\n")
	for _, line := range lines {
		writef("%s\n", line)
	}
	return writeErr
}

// SaveReport writes lines to path with "\n" endings.
func SaveReport(path string, lines []string, overwrite bool) error {
	return save(path, overwrite, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, line := range lines {
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
}

// SaveJSONReport writes the JSON report document to path.
func SaveJSONReport(path string, messages []message.Message, header Header, overwrite bool) error {
	return save(path, overwrite, func(w io.Writer) error {
		return WriteJSON(w, messages, header, true)
	})
}

func save(path string, overwrite bool, write func(io.Writer) error) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s (pass --overwrite to replace it)", ErrReportExists, path)
		}
		return fmt.Errorf("create report %s: %w", path, err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}
