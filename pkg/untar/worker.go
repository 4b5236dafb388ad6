package untar

import (
	"context"

	"github.com/infracollect/untar/pkg/protocol"
)

// Event is one item of a worker's output: either a protocol message or a
// fault of the worker itself. Exactly one field is set.
type Event struct {
	Message protocol.Message
	Fault   error
}

// Worker is an isolated unit of execution that decodes one archive.
//
// Events delivers messages in the order the worker produced them. The
// channel is closed when the worker stops. A worker that reports a Fault has
// already released its resources; Terminate is not called after a fault.
type Worker interface {
	// Post hands the request to the worker. It never blocks on the worker;
	// delivery failures surface as a Fault event.
	Post(req protocol.ExtractRequest)
	Events() <-chan Event
	// Terminate stops the worker and waits for it to exit.
	Terminate() error
}

// Spawner is the host capability to create workers.
type Spawner interface {
	// Available reports why workers cannot be spawned, or nil.
	Available() error
	Spawn(ctx context.Context) (Worker, error)
}
