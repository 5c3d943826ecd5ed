package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_WritesKeyedJSON(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisher(w, "donors", zap.NewNop())

	event := NewEvent(EventDonorApproved, 42, DonorDecidedPayload{
		OldStatus: domain.ApprovalStatusPending,
		NewStatus: domain.ApprovalStatusApproved,
		Decision:  domain.DecisionApprove,
	})
	require.NoError(t, p.Handle(context.Background(), event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("donor_approved")})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "donor_approved", decoded["type"])
	assert.Equal(t, float64(42), decoded["donor_id"])
	assert.Equal(t, "approved", decoded["payload"].(map[string]any)["new_status"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_ReturnsWriteError(t *testing.T) {
	broken := errors.New("leader not available")
	p := NewKafkaPublisher(&recordingWriter{err: broken}, "donors", zap.NewNop())

	err := p.Handle(context.Background(), NewEvent(EventDonorRegistered, 1, nil))
	assert.ErrorIs(t, err, broken)
}
