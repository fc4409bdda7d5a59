// Package llm provides the uniform client for invoking backend language models.
package llm

import "context"

// ErrorMarker prefixes result text for backend-reported failures so callers
// can route the failure into model context instead of aborting.
const ErrorMarker = "ERROR:"

// Request describes one model invocation.
type Request struct {
	Model  string
	System string
	Prompt string
}

// StreamCallback observes each token fragment as it arrives. Returning an
// error aborts the stream.
type StreamCallback func(chunk string) error

// Client is the uniform interface to a text-completion backend.
type Client interface {
	// Complete issues one blocking request and returns the full response text.
	// A backend-reported error yields an ErrorMarker-prefixed string, not a
	// Go error; transport failures and timeouts return an error.
	Complete(ctx context.Context, req *Request) (string, error)

	// Stream issues a streaming request, invoking callback per token fragment
	// in arrival order, and returns the concatenated text. callback may be nil.
	Stream(ctx context.Context, req *Request, callback StreamCallback) (string, error)
}
