package reporter

import (
	"context"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// Reporter renders inspection messages.
type Reporter interface {
	Generate(ctx context.Context, messages []message.Message) error
}
