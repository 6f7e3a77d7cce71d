package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

func TestNewEnvelopeDefaults(t *testing.T) {
	orderID := uuid.New()
	local := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	env, err := newEnvelope(DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         AdminActor(uuid.New()),
		Data:          map[string]string{"tracking_number": "1Z999"},
		OccurredAt:    local,
	})
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, env.SchemaVersion)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.True(t, env.OccurredAt.Equal(local))
	assert.Equal(t, enums.UserRoleAdmin, env.Actor.Role)
	_, err = uuid.Parse(env.EventID)
	assert.NoError(t, err)

	var data struct {
		TrackingNumber string `json:"tracking_number"`
	}
	require.NoError(t, env.DecodeData(&data))
	assert.Equal(t, "1Z999", data.TrackingNumber)
}

func TestNewEnvelopeRejectsUnencodableData(t *testing.T) {
	_, err := newEnvelope(DomainEvent{
		EventType:   enums.EventOrderPaid,
		AggregateID: uuid.New(),
		Data:        make(chan int),
	})
	require.Error(t, err)
}

func TestDecodeEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: `{"schema_version":1,"event_id":"e1","event_type":"order.paid","data":{"order_id":"x"}}`},
		{name: "null data", raw: `{"schema_version":1,"data":null}`, wantErr: true},
		{name: "missing data", raw: `{"schema_version":1}`, wantErr: true},
		{name: "not json", raw: `{`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.raw))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, enums.EventOrderPaid, env.EventType)
			assert.Equal(t, "e1", env.EventID)
		})
	}
}
