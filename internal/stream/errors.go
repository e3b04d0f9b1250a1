package stream

import "errors"

// Classified outcomes of a viewer session. UpstreamEnded and ClientCancelled
// are expected ends of a live stream, not application errors; neither is
// retried here.
var (
	// ErrUpstreamEnded means the extractor exited on its own: the channel
	// went offline or the stream finished.
	ErrUpstreamEnded = errors.New("upstream stream ended")

	// ErrClientCancelled means the viewer disconnected mid-stream.
	ErrClientCancelled = errors.New("client cancelled")
)
