package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func validEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
	}
	if stage == StageNodeVisited {
		evt.ProfileID = "alice"
		evt.Outcome = "ok"
	}
	return evt
}

func TestHub_DeliversEventsToSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(validEvent(StageRunStart))
	hub.Emit(validEvent(StageNodeVisited))

	require.NoError(t, hub.Close(context.Background()))
	got := sink.snapshot()
	require.Len(t, got, 2)
	require.Equal(t, StageRunStart, got[0].Stage)
	require.Equal(t, StageNodeVisited, got[1].Stage)
	require.True(t, sink.closed)
}

func TestHub_DiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{}) // missing run id and timestamp
	evt := validEvent(StageNodeVisited)
	evt.ProfileID = ""
	hub.Emit(evt)

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.snapshot())
}

func TestHub_EmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageRunStart))
	require.Empty(t, sink.snapshot())
}

func TestHub_NilHubIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent(StageRunStart))
	require.Zero(t, hub.Dropped())
	require.NoError(t, hub.Close(context.Background()))
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid run start", func(*Event) {}, false},
		{"missing run id", func(e *Event) { e.RunID = [16]byte{} }, true},
		{"missing timestamp", func(e *Event) { e.TS = time.Time{} }, true},
		{"unknown stage", func(e *Event) { e.Stage = "BOGUS" }, true},
		{"negative duration", func(e *Event) { e.Dur = -time.Second }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := validEvent(StageRunStart)
			tc.mutate(&evt)
			err := evt.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
