package api

import "errors"

var (
	// ErrInvalidArgument reports a request that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownOp reports a request naming an operation that does not exist.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrMalformedRequest reports a frame that is not a valid request.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrRateLimited reports a request dropped by the connection's rate limiter.
	ErrRateLimited = errors.New("rate limit exceeded")
)
