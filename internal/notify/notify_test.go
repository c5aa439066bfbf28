package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkinDesk/internal/model"
)

type captureStore struct{ got []*model.Notification }

func (c *captureStore) CreateNotification(_ context.Context, n *model.Notification) error {
	c.got = append(c.got, n)
	return nil
}

type capturePublisher struct {
	bodies [][]byte
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, body []byte) error {
	c.bodies = append(c.bodies, body)
	return c.err
}

func nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestBulkUploadMessages(t *testing.T) {
	store := &captureStore{}
	n := New(StoreSink{Store: store}, nop())

	require.NoError(t, n.BulkUploadCompleted(context.Background(), 3, 0))
	require.NoError(t, n.BulkUploadCompleted(context.Background(), 2, 1))

	require.Len(t, store.got, 2)
	assert.Equal(t, TitleBulkUpload, store.got[0].Title)
	assert.Equal(t, "3 attendees were successfully uploaded.", store.got[0].Message)
	assert.Equal(t, model.NotificationSuccess, store.got[0].Type)
	assert.Equal(t, "2 attendees were successfully uploaded. 1 errors occurred during upload.", store.got[1].Message)
	assert.Equal(t, model.NotificationWarning, store.got[1].Type)
}

func TestCheckedInThroughQueue(t *testing.T) {
	pub := &capturePublisher{}
	n := New(QueueSink{Publisher: pub}, nop())

	require.NoError(t, n.AttendeeCheckedIn(context.Background(), "Alice", "a-1"))
	require.Len(t, pub.bodies, 1)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, TitleCheckedIn, msg.Title)
	assert.Equal(t, "Alice has successfully checked in to the event.", msg.Message)
	require.NotNil(t, msg.AttendeeID)
	assert.Equal(t, "a-1", *msg.AttendeeID)
}

func TestSendDefaultsTypeAndPropagatesErrors(t *testing.T) {
	pub := &capturePublisher{err: errors.New("closed")}
	n := New(QueueSink{Publisher: pub}, nop())

	err := n.Send(context.Background(), Message{Title: "t", Message: "m"})
	assert.Error(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, model.NotificationInfo, msg.Type)
}
