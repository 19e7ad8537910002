// Package transcribe turns one buffered audio segment into text.
package transcribe

import "context"

// Transcriber converts a complete audio segment to text. Implementations
// may fail per call; the pipeline treats a failure as fatal for that
// segment only.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
