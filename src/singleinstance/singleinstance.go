// Package singleinstance guards against a second resident process and lets
// short-lived invocations ("ctrl-ai trigger refactor") delegate a trigger to
// the resident over loopback TCP.
//
// Wire format, one request per connection:
//
//	PING\n            -> PONG\n
//	TRIGGER <mode>\n  -> SUCCESS\n | ERROR\n<message>
package singleinstance

import (
	"context"
	"errors"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	triggerVerb  = "TRIGGER"
	successLine  = "SUCCESS\n"
	errorLine    = "ERROR\n"
)

// ErrBusy is returned to a delegating client when the resident's pool is saturated.
var ErrBusy = errors.New("Busy, please retry")

// Request is a parsed client request.
type Request struct {
	Mode string
}

// Conn is one accepted trigger request awaiting its answer.
type Conn interface {
	Request() Request
	RespondSuccess() error
	RespondError(msg string) error
	Close() error
}

// Server owns the loopback endpoint.
type Server interface {
	// Start binds the first port of the range. Failure means another resident owns it.
	Start(ctx context.Context) error
	Port() int
	// Next returns the next trigger request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Client delegates a trigger to a resident, if one answers.
type Client interface {
	// TryTrigger returns delegated=false, err=nil when no resident is found.
	TryTrigger(ctx context.Context, mode string) (delegated bool, err error)
}

func NewServer() Server { return newTCPServer() }

func NewClient() Client { return &tcpClient{} }
