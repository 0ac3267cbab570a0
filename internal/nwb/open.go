package nwb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/retry"
)

// Opener reads and decodes snapshot files, retrying transient read failures.
type Opener struct {
	ReadFile func(path string) ([]byte, error)
	Policy   retry.Policy
}

// NewOpener returns an opener reading from the local filesystem.
func NewOpener() *Opener {
	return &Opener{ReadFile: os.ReadFile, Policy: retry.DefaultPolicy}
}

// Open reads path and decodes it without resolving references.
func (o *Opener) Open(ctx context.Context, path string) (*Snapshot, error) {
	readFile := o.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	var data []byte
	err := retry.Do(ctx, "read "+path, o.Policy, IsTransientReadError, func() error {
		var readErr error
		data, readErr = readFile(path)
		return readErr
	})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	snap, err := Decode(data, DetectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return snap, nil
}

// ReadIdentifier opens path and returns its declared file identifier.
func (o *Opener) ReadIdentifier(ctx context.Context, path string) (string, error) {
	snap, err := o.Open(ctx, path)
	if err != nil {
		return "", err
	}
	return snap.Identifier, nil
}

// IsTransientReadError reports read failures worth retrying: timeouts and
// interrupted or busy I/O, typically on network or FUSE mounts.
func IsTransientReadError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EIO) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}

	return false
}
