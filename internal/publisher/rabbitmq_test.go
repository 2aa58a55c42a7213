package publisher

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizintel/internal/domain"
)

func TestNewPublishing(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report := &domain.Report{
		ID:      42,
		Persona: domain.PersonaAnalyst,
		Topic:   "AI",
		Quotes:  []domain.Quote{{Symbol: "AAPL", Current: 190}},
	}

	msg, err := newPublishing(report, now)
	require.NoError(t, err)

	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "analyst-42", msg.MessageId)
	assert.Equal(t, domain.PersonaAnalyst, msg.Headers["persona"])

	var body ReportMessage
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "report", body.Action)
	assert.Equal(t, domain.PersonaAnalyst, body.Persona)
	assert.Equal(t, int64(42), body.ReportID)
	assert.Equal(t, "AAPL", body.Report.Quotes[0].Symbol)
	assert.True(t, now.Equal(body.Timestamp))
}
