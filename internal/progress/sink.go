package progress

import "context"

// Sink consumes batches of progress events. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// traversal loop stays agnostic about buffering and persistence. A nil
// *Hub is a valid no-op Emitter.
type Emitter interface {
	Emit(evt Event)
}
