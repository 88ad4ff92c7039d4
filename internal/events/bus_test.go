package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/minhnb-dev/backend-cuahang/internal/events"
)

type stubStore struct {
	inserted []events.Event
	err      error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (events.Event, error) {
	if s.err != nil {
		return events.Event{}, s.err
	}
	ev := events.Event{
		ID:          pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	s.inserted = append(s.inserted, ev)
	return ev, nil
}

type captureScheduler struct {
	events []events.Event
	err    error
}

func (c *captureScheduler) Schedule(_ context.Context, ev events.Event) error {
	c.events = append(c.events, ev)
	return c.err
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, ev events.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func toUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := &events.Bus{Store: store, Scheduler: scheduler, Notifiers: []events.Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), events.TopicOrderCreated, toUUID(uuid.New()), map[string]any{"grandTotal": 200_000})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, ev.Topic)
	require.True(t, json.Valid(ev.Payload))
	require.Len(t, store.inserted, 1)
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
}

func TestEmitRequiresAggregateID(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicVoucherClaimed, pgtype.UUID{}, nil)
	require.Error(t, err)
}

func TestEmitRejectsInvalidJSONPayload(t *testing.T) {
	bus := &events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicVoucherClaimed, toUUID(uuid.New()), []byte("not json"))
	require.Error(t, err)
}

func TestEmitJoinsHandlerFailures(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{err: errors.New("queue down")}
	bus := &events.Bus{Store: store, Scheduler: scheduler}

	_, err := bus.Emit(context.Background(), events.TopicVoucherRedeemed, toUUID(uuid.New()), map[string]any{"code": "SALE10"})
	require.Error(t, err)
	require.Len(t, store.inserted, 1, "persistence must not be undone by handler failure")
}
