package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

// User-facing messages. These are the only strings shown to a person; every
// other error detail goes to the logs.
const (
	MsgRateLimited        = "Too many requests. Please wait a moment and try again."
	MsgUnavailable        = "Service temporarily unavailable. Please try again later."
	MsgFailure            = "Something went wrong. Please try again."
	MsgNoResponse         = "No response received."
	MsgUnreadable         = "Received an unreadable response. Please try again."
	MsgChatConnection     = "Connection failed. Please check your internet and try again."
	MsgCaseFileConnection = "Connection failed. Please try again."
)

// TransportError is returned when the request never produced an HTTP
// response.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage maps err to the message shown to the user. Connectivity
// failures, including a stream that breaks mid-read, use connectivityMsg.
// A nil error or a cancelled context yields "".
func UserMessage(err error, connectivityMsg string) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}

	var se *gateway.StatusError
	if errors.As(err, &se) {
		switch se.Kind() {
		case gateway.KindRateLimited:
			return MsgRateLimited
		case gateway.KindQuotaExhausted:
			return MsgUnavailable
		default:
			return MsgFailure
		}
	}

	switch {
	case errors.Is(err, gateway.ErrNoBody):
		return MsgNoResponse
	case errors.Is(err, sse.ErrMalformedRecord), errors.Is(err, sse.ErrBufferOverflow):
		return MsgUnreadable
	default:
		return connectivityMsg
	}
}
