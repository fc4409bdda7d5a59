package consts

import "time"

// Workflow limits
const (
	// DefaultMaxLoops bounds the number of orchestration iterations per task
	DefaultMaxLoops = 7
)

// Buffer sizes for various operations
const (
	// BufferSize256KB is 256 kilobytes
	BufferSize256KB = 256 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
)

// Storage thresholds
const (
	// MaxInlineBlobBytes is the largest payload kept inline by the overflow
	// blob store; anything larger spills to a compressed file
	MaxInlineBlobBytes = 2 * 1024 * 1024
)

// Timeouts for various operations
const (
	// Timeout5Minutes is a 5 minute timeout
	Timeout5Minutes = 5 * time.Minute
)

// Model call defaults
const (
	// DefaultModelCallTimeout bounds one model invocation, streaming or not
	DefaultModelCallTimeout = Timeout5Minutes
)

// Context budgeting
const (
	// DefaultHistoryTokenBudget caps the conversation history forwarded to
	// model calls; older iteration blocks are dropped first
	DefaultHistoryTokenBudget = 8192
)
