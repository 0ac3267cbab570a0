package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/checkconfig"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/reporter"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/sink"
)

// Process exit codes.
const (
	ExitSuccess    = 0
	ExitFindings   = 1
	ExitInternal   = 2
	ExitInvalidArg = 3
	ExitNotFound   = 4
	ExitNetwork    = 5
)

// FindingsError reports that --fail-on was reached.
type FindingsError struct {
	Count int
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d findings detected", e.Count)
}

var invalidArgErrors = []error{
	checkconfig.ErrSelectAndIgnore,
	checkconfig.ErrUnknownConfig,
	checkconfig.ErrInvalidConfig,
	reporter.ErrInvalidLevel,
	reporter.ErrReportExists,
	sink.ErrNoTopic,
}

// classifyError maps err to an exit code. Sentinels are checked first; the
// message text is the fallback for errors from libraries.
func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var findings *FindingsError
	if errors.As(err, &findings) {
		return ExitFindings
	}
	if errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	for _, target := range invalidArgErrors {
		if errors.Is(err, target) {
			return ExitInvalidArg
		}
	}
	if sink.IsNetworkError(err) || sink.IsAuthError(err) {
		return ExitNetwork
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "not a directory", "does not exist", "no such file"):
		return ExitNotFound
	case containsAny(text, "dial", "connection refused", "i/o timeout", "network is unreachable"):
		return ExitNetwork
	case containsAny(text, "required", "invalid", "must be", "expected", "unknown flag", "unknown command", "requires at least"):
		return ExitInvalidArg
	}
	return ExitInternal
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
