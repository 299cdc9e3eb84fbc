package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleReport() community.Report {
	temp := 4.5
	return community.Report{
		ID:         "r-1",
		Timestamp:  time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC),
		Conditions: []community.Condition{community.ConditionSnow, community.ConditionWindy},
		Lat:        45.83,
		Lng:        6.86,
		UserID:     "u-9",
		Temp:       &temp,
	}
}

func TestPublisher_ReportSubmitted(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "community", routingKey: "report.submitted"}

	require.NoError(t, p.ReportSubmitted(context.Background(), sampleReport()))

	assert.Equal(t, "community", ch.exchange)
	assert.Equal(t, "report.submitted", ch.key)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.Equal(t, "r-1", ch.msg.MessageId)

	var ev ReportEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &ev))
	assert.Equal(t, "report.submitted", ev.Type)
	assert.Equal(t, []string{"Snow", "Windy"}, ev.Conditions)
	assert.Equal(t, 4.5, *ev.Temp)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_Errors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &Publisher{channel: ch}
	assert.ErrorContains(t, p.ReportSubmitted(context.Background(), sampleReport()), "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.ReportSubmitted(ctx, sampleReport()), context.Canceled)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.ReportSubmitted(context.Background(), sampleReport()))
}
