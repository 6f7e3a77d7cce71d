package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/registry"
)

func TestDrainRetriesAndContinues(t *testing.T) {
	rows := []models.OutboxEvent{orderRow(t, 0), orderRow(t, 0)}
	h := newHarness(t, rows, config.OutboxConfig{BatchSize: 2, MaxAttempts: 5})
	h.transport.errs = []error{errors.New("broker unavailable"), nil}

	report, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Claimed: 2, Published: 1, Retried: 1}, report)
	assert.Equal(t, []uuid.UUID{rows[0].ID}, h.queue.failed)
	assert.Equal(t, []uuid.UUID{rows[1].ID}, h.queue.published)
	assert.Equal(t, map[string]int{"retry": 1, "published": 1}, h.metrics.outcomes)
}

func TestDrainPublishesEnvelopeKeyedByAggregate(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, []models.OutboxEvent{row}, config.OutboxConfig{})

	_, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.transport.sent, 1)
	sent := h.transport.sent[0]
	assert.Equal(t, "orders-topic", sent.topic)
	assert.Equal(t, row.AggregateID.String(), sent.msg.Key)
	assert.Equal(t, string(enums.EventOrderCreated), sent.msg.Attributes["event_type"])
	assert.NotEmpty(t, sent.msg.Attributes["event_id"])
	assert.JSONEq(t, string(row.Payload), string(sent.msg.Data))
}

func TestDrainParksUnresolvableRows(t *testing.T) {
	broken := orderRow(t, 0)
	broken.Payload = json.RawMessage(`{"schema_version":1,"data":null}`)
	unknown := orderRow(t, 0)
	unknown.EventType = "order.teleported"

	h := newHarness(t, []models.OutboxEvent{broken, unknown}, config.OutboxConfig{MaxAttempts: 4})

	report, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.DeadLettered)
	require.Len(t, h.dlq.parked, 2)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.parked[0].reason)
	assert.Equal(t, enums.OutboxDLQReasonUnknownEvent, h.dlq.parked[1].reason)
	assert.Equal(t, []int{4, 4}, h.queue.terminalAt)
	assert.Empty(t, h.transport.sent)
}

func TestDrainParksAfterMaxAttempts(t *testing.T) {
	row := orderRow(t, 1)
	h := newHarness(t, []models.OutboxEvent{row}, config.OutboxConfig{MaxAttempts: 2})
	h.transport.errs = []error{errors.New("timeout")}

	report, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeadLettered)
	require.Len(t, h.dlq.parked, 1)
	assert.Equal(t, row.ID, h.dlq.parked[0].row.ID)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.parked[0].reason)
	assert.ErrorContains(t, h.dlq.parked[0].cause, "gave up after 2 attempts")
}

func TestDrainParksPermanentTransportErrors(t *testing.T) {
	h := newHarness(t, []models.OutboxEvent{orderRow(t, 0)}, config.OutboxConfig{MaxAttempts: 9})
	h.transport.errs = []error{registry.Permanent{Err: errors.New("message too large")}}

	report, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeadLettered)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.parked[0].reason)
}

func TestDrainAbortsOnBookkeepingFailure(t *testing.T) {
	h := newHarness(t, []models.OutboxEvent{orderRow(t, 0)}, config.OutboxConfig{})
	h.queue.markErr = errors.New("connection reset")

	_, err := h.relay.Drain(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestDrainEmpty(t *testing.T) {
	h := newHarness(t, nil, config.OutboxConfig{})
	report, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil, config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := h.relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunFailsFastWhenTransportIsDown(t *testing.T) {
	h := newHarness(t, nil, config.OutboxConfig{})
	h.transport.pingErr = errors.New("dial tcp: refused")

	err := h.relay.Run(context.Background())
	require.ErrorContains(t, err, "fake ping")
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(config.OutboxConfig{}, Deps{Logger: logger.Nop()})
	require.Error(t, err)
}

type harness struct {
	relay     *Relay
	queue     *fakeQueue
	dlq       *fakeDLQ
	transport *fakeTransport
	metrics   *fakeObserver
}

func newHarness(t *testing.T, rows []models.OutboxEvent, cfg config.OutboxConfig) *harness {
	t.Helper()
	reg, err := registry.New(registry.Topics{Orders: "orders-topic", Notifications: "notifications-topic"})
	require.NoError(t, err)
	h := &harness{
		queue:     &fakeQueue{rows: rows},
		dlq:       &fakeDLQ{},
		transport: &fakeTransport{},
		metrics:   &fakeObserver{outcomes: map[string]int{}},
	}
	h.relay, err = New(cfg, Deps{
		DB:            fakeDB{},
		Queue:         h.queue,
		DeadLetters:   h.dlq,
		Resolver:      reg,
		Transport:     h.transport,
		TransportName: "fake",
		Metrics:       h.metrics,
		Logger:        logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return h
}

func orderRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	orderID := uuid.New()
	data, err := json.Marshal(map[string]any{"order_id": orderID, "order_number": "ORD-1"})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.Envelope{
		SchemaVersion: 1,
		EventID:       uuid.NewString(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		OccurredAt:    time.Now().UTC(),
		Data:          data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeQueue struct {
	rows       []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminalAt []int
	markErr    error
}

func (f *fakeQueue) Claim(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeQueue) MarkPublished(_ *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeQueue) RecordFailure(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeQueue) Exhaust(_ *gorm.DB, _ uuid.UUID, _ error, attempts int) error {
	f.terminalAt = append(f.terminalAt, attempts)
	return nil
}

type parkedRow struct {
	row    models.OutboxEvent
	reason enums.OutboxDLQErrorReason
	cause  error
}

type fakeDLQ struct {
	parked []parkedRow
}

func (f *fakeDLQ) Park(_ *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	f.parked = append(f.parked, parkedRow{row: row, reason: reason, cause: cause})
	return nil
}

type sentMessage struct {
	topic string
	msg   outbox.Message
}

type fakeTransport struct {
	errs    []error
	sent    []sentMessage
	pingErr error
}

func (f *fakeTransport) Publish(_ context.Context, topic string, msg outbox.Message) error {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{topic: topic, msg: msg})
	return nil
}

func (f *fakeTransport) Ping(context.Context) error { return f.pingErr }

func (f *fakeTransport) Close() error { return nil }

type fakeObserver struct {
	outcomes map[string]int
}

func (f *fakeObserver) ObservePublish(_, outcome string) {
	f.outcomes[outcome]++
}
