package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/retry"
)

func TestIsAuthError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "generic", err: errors.New("something"), want: false},
		{name: "sasl-auth-failed", err: kerr.SaslAuthenticationFailed, want: true},
		{name: "unsupported-sasl-mechanism", err: kerr.UnsupportedSaslMechanism, want: true},
		{name: "topic-auth-failed", err: kerr.TopicAuthorizationFailed, want: true},
		{name: "cluster-auth-failed", err: kerr.ClusterAuthorizationFailed, want: true},
		{name: "wrapped-sasl-auth", err: fmt.Errorf("connect: %w", kerr.SaslAuthenticationFailed), want: true},
		{name: "first-read-eof", err: fmt.Errorf("dial: %w", &kgo.ErrFirstReadEOF{}), want: true},
		{name: "broker-not-available", err: kerr.BrokerNotAvailable, want: false},
		{name: "io-eof", err: io.EOF, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAuthError(tc.err); got != tc.want {
				t.Fatalf("IsAuthError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "generic", err: errors.New("boom"), want: false},
		{name: "net-closed", err: net.ErrClosed, want: true},
		{name: "broker-not-available", err: fmt.Errorf("ping: %w", kerr.BrokerNotAvailable), want: true},
		{name: "dial-error", err: connRefused(), want: true},
		{name: "auth", err: kerr.SaslAuthenticationFailed, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNetworkError(tc.err); got != tc.want {
				t.Fatalf("IsNetworkError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "auth-error", err: kerr.SaslAuthenticationFailed, want: false},
		{name: "context-canceled", err: context.Canceled, want: false},
		{name: "context-deadline", err: context.DeadlineExceeded, want: false},
		{name: "leader-not-available", err: kerr.LeaderNotAvailable, want: true},
		{name: "request-timed-out", err: kerr.RequestTimedOut, want: true},
		{name: "net-closed", err: net.ErrClosed, want: true},
		{name: "wrapped-timeout", err: fmt.Errorf("op: %w", kerr.RequestTimedOut), want: true},
		{name: "generic-error", err: errors.New("unknown"), want: false},
		{name: "non-retriable-kerr", err: kerr.InvalidTopicException, want: false},
		{name: "connection-refused", err: connRefused(), want: false},
		{name: "dial-timeout", err: &net.OpError{Op: "dial", Net: "tcp", Err: &timeoutError{}}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Fatalf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func connRefused() error {
	return &net.OpError{
		Op:   "dial",
		Net:  "tcp",
		Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9092},
		Err:  &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
}

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetryWithBrokerClassifier(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "auth fails fast", err: kerr.SaslAuthenticationFailed, wantCalls: 1},
		{name: "permanent fails fast", err: errors.New("permanent failure"), wantCalls: 1},
		{name: "transient exhausts", err: kerr.RequestTimedOut, wantCalls: 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := retry.Do(context.Background(), "produce", fastPolicy(), isRetryable, func() error {
				calls++
				return tc.err
			})
			if !errors.Is(err, tc.err) {
				t.Fatalf("error = %v, want %v", err, tc.err)
			}
			if calls != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", calls, tc.wantCalls)
			}
		})
	}
}
