// Package queue declares the message-queue publishing surface consumed
// by the registrar and the updaters. The broker
// itself lives behind this interface; core scheduling code depends only
// on Publisher.
package queue

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"

	"github.com/google/uuid"
)

// Named queues published to by this module.
const (
	NewClientRequestQueue      = "newClientRequestQueue"
	UnauthenticatedClientQueue = "unauthenticatedIloClientQueue"
	AuthenticatedClientQueue   = "authenticatedIloClientQueue"
)

// Framing selects whether a Publisher gzip-frames message bodies. The
// producer decides via configuration, and every consumer must accept
// both forms (DecodeFrame below).
type Framing int

const (
	FramingNone Framing = iota
	FramingGzip
)

// Message is one payload bound for a named queue.
type Message struct {
	Queue   string
	ID      uuid.UUID
	Payload []byte
}

// Publisher publishes messages onto a named queue. Concrete adapters
// (internal/queue/amqp091, internal/queue/inmemory) implement it.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// RegistrationRequest is the payload published to NewClientRequestQueue.
// The message ID lets an at-least-once queue consumer deduplicate
// redeliveries.
type RegistrationRequest struct {
	ID         uuid.UUID `json:"id"`
	IloAddress string    `json:"iloAddress"`
}

// gzipMagic is the two-byte gzip header used to detect framing.
var gzipMagic = []byte{0x1f, 0x8b}

// EncodeFrame frames payload according to f.
func EncodeFrame(payload []byte, f Framing) ([]byte, error) {
	if f != FramingGzip {
		return payload, nil
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFrame accepts both gzip-framed and unframed bodies: every
// consumer must tolerate either form a producer might choose.
func DecodeFrame(body []byte) ([]byte, error) {
	if len(body) < 2 || !bytes.Equal(body[:2], gzipMagic) {
		return body, nil
	}
	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
