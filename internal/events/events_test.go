package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{w: w}

	ev := New(TypeLogin)
	ev.UserID = "u-1"
	ev.Username = "alice"
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("u-1"), w.msgs[0].Key)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, TypeLogin, decoded.Type)
	assert.Equal(t, "alice", decoded.Username)
	assert.NotEmpty(t, decoded.ID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{w: &recordingWriter{err: errors.New("broker down")}}
	require.Error(t, p.Publish(context.Background(), New(TypeLogout)))
}

type countingPublisher struct {
	n   int
	err error
}

func (c *countingPublisher) Publish(context.Context, Event) error {
	c.n++
	return c.err
}

func (c *countingPublisher) Close() error { return nil }

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	a, b := &countingPublisher{}, &countingPublisher{err: boom}
	f := Fanout{a, b, Nop{}}

	err := f.Publish(context.Background(), New(TypeRefresh))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
	require.NoError(t, f.Close())
}
