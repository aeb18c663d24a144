package errors

import "github.com/pkg/errors"

var (
	// dedup gate
	ErrDuplicateEmail = errors.New("email already ingested")

	// inbox routing
	ErrNoMatchingInbox = errors.New("no matching inbox configuration")
	ErrInboxDisabled   = errors.New("inbox configuration is disabled")

	// ingestion
	ErrEmailNotFound     = errors.New("inbound email not found")
	ErrAlreadyProcessed  = errors.New("email already processed")
	ErrDispatchQueueFull = errors.New("dispatch queue is full")

	// poller
	ErrPollAlreadyRunning = errors.New("poll already running for pipeline")

	// settings
	ErrInvalidInboundAddress = errors.New("invalid inbound email address")
)
