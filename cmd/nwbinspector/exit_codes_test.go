package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/checkconfig"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/reporter"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/sink"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "findings", err: &FindingsError{Count: 5}, want: ExitFindings},
		{name: "wrapped findings", err: fmt.Errorf("inspect: %w", &FindingsError{Count: 3}), want: ExitFindings},

		{name: "not exist", err: os.ErrNotExist, want: ExitNotFound},
		{name: "wrapped not exist", err: fmt.Errorf("stat data: %w", os.ErrNotExist), want: ExitNotFound},
		{name: "not a directory text", err: errors.New("path is not a directory"), want: ExitNotFound},
		{name: "no such file text", err: errors.New("no such file or directory"), want: ExitNotFound},

		{name: "dial text", err: errors.New("dial tcp: connection refused"), want: ExitNetwork},
		{name: "i/o timeout text", err: errors.New("i/o timeout"), want: ExitNetwork},
		{name: "unreachable text", err: errors.New("network is unreachable"), want: ExitNetwork},
		{name: "broker unavailable", err: fmt.Errorf("ping broker: %w", kerr.BrokerNotAvailable), want: ExitNetwork},
		{name: "sasl", err: fmt.Errorf("connect: %w", kerr.SaslAuthenticationFailed), want: ExitNetwork},

		{name: "select and ignore", err: checkconfig.ErrSelectAndIgnore, want: ExitInvalidArg},
		{name: "unknown config", err: fmt.Errorf("%w \"nope\"", checkconfig.ErrUnknownConfig), want: ExitInvalidArg},
		{name: "bad level", err: fmt.Errorf("%w \"severity\"", reporter.ErrInvalidLevel), want: ExitInvalidArg},
		{name: "report exists", err: fmt.Errorf("%w: out.txt", reporter.ErrReportExists), want: ExitInvalidArg},
		{name: "no topic", err: sink.ErrNoTopic, want: ExitInvalidArg},
		{name: "required text", err: errors.New("kafka-topic is required when --kafka-brokers is set"), want: ExitInvalidArg},
		{name: "must be text", err: errors.New("timeout must be greater than zero"), want: ExitInvalidArg},
		{name: "cobra args", err: errors.New("requires at least 1 arg(s), only received 0"), want: ExitInvalidArg},

		{name: "other", err: errors.New("something went wrong"), want: ExitInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyError(tc.err); got != tc.want {
				t.Fatalf("classifyError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestFindingsErrorMessage(t *testing.T) {
	err := &FindingsError{Count: 7}
	if got, want := err.Error(), "7 findings detected"; got != want {
		t.Fatalf("FindingsError.Error() = %q, want %q", got, want)
	}
}
