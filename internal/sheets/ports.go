package sheets

import (
	"context"

	"kas/internal/core"
)

// Publisher is the outbound port for the public transparency feed. Implemented
// by the Google Sheets adapter in production and the memory adapter in tests.
type Publisher interface {
	// Publish replaces the published feed with the given anonymized entries.
	Publish(ctx context.Context, entries []core.TransparencyEntry) error
}
