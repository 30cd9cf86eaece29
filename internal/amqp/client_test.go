package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"access refused", errors.New("Exception (403) Reason: ACCESS_REFUSED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	valid, err := NewChangeEvent(EventEntryCreated, 1, 10).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got *ChangeEvent
		dispatch(ctx, valid, ack, func(_ context.Context, ev *ChangeEvent) error {
			got = ev
			return nil
		})
		if !ack.acked || got == nil || got.SubjectID != 10 {
			t.Fatalf("expected ack with decoded event, got ack=%v ev=%+v", ack.acked, got)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		dispatch(ctx, valid, ack, func(context.Context, *ChangeEvent) error { return errors.New("sheets down") })
		if !ack.nacked || !ack.requeued {
			t.Fatalf("expected nack with requeue, got %+v", ack)
		}
	})

	t.Run("drop malformed", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		dispatch(ctx, []byte(`{"kind":"entry.exploded","user_id":1}`), ack, func(context.Context, *ChangeEvent) error {
			called = true
			return nil
		})
		if called || !ack.nacked || ack.requeued {
			t.Fatalf("expected drop without requeue, got %+v called=%v", ack, called)
		}
	})
}

func TestChangeEventSubject(t *testing.T) {
	cases := map[EventKind]string{
		EventEntryDeleted:    "entry",
		EventGoalUpdated:     "goal",
		EventBudgetSubmitted: "budget",
	}
	for kind, want := range cases {
		if got := NewChangeEvent(kind, 1, 1).Subject(); got != want {
			t.Errorf("%s: got %s want %s", kind, got, want)
		}
	}
}
