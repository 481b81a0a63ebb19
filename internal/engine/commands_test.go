package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ecohub-core/internal/services"
	"ecohub-core/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCommandStore struct {
	created   []store.Command
	createErr error

	completed   []string
	completeErr error
}

func (f *fakeCommandStore) CreateCommand(_ context.Context, c *store.Command) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *c)
	return nil
}

func (f *fakeCommandStore) CompleteCommand(_ context.Context, zoneID, action string) (*store.Command, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completed = append(f.completed, action)
	return &store.Command{ZoneID: zoneID, Action: action, Status: store.CommandCompleted}, nil
}

type fakeVerifier struct {
	user *services.AuthUser
	err  error
}

func (f *fakeVerifier) VerifyToken(_ string) (*services.AuthUser, error) {
	return f.user, f.err
}

func newCommandFixture() (*CommandService, *fakeCommandStore, *fakePublisher, *fakeVerifier) {
	st := &fakeCommandStore{}
	pub := &fakePublisher{}
	verifier := &fakeVerifier{user: &services.AuthUser{UID: "user-1"}}
	c := NewCommandService(st, pub, verifier, "ecohub", zap.NewNop())
	return c, st, pub, verifier
}

func TestPublishCommandRecordsAndSends(t *testing.T) {
	c, st, pub, _ := newCommandFixture()

	require.NoError(t, c.Publish(context.Background(), "zone-1", "pump-1", "PUMP_WATER_ON", "scheduler"))

	require.Len(t, st.created, 1)
	assert.Equal(t, store.CommandPending, st.created[0].Status)
	assert.Equal(t, "scheduler", st.created[0].RequestedBy)

	sent := pub.on(commandTopic("ecohub", "zone-1"))
	require.Len(t, sent, 1)
	assert.Equal(t, "PUMP_WATER_ON", string(sent[0]))
}

func TestPublishCommandSurvivesStoreFailure(t *testing.T) {
	c, st, pub, _ := newCommandFixture()
	st.createErr = errors.New("db down")

	require.NoError(t, c.Publish(context.Background(), "zone-1", "pump-1", "PUMP_WATER_ON", "scheduler"))
	assert.Len(t, pub.on(commandTopic("ecohub", "zone-1")), 1)
}

func TestPublishAsVerifiesToken(t *testing.T) {
	c, st, _, verifier := newCommandFixture()

	require.NoError(t, c.PublishAs(context.Background(), "token", "zone-1", "fan-1", "TURN_FAN_ON"))
	require.Len(t, st.created, 1)
	assert.Equal(t, "user-1", st.created[0].RequestedBy)

	verifier.user, verifier.err = nil, services.ErrInvalidToken
	assert.Error(t, c.PublishAs(context.Background(), "bad", "zone-1", "fan-1", "TURN_FAN_ON"))
	assert.Len(t, st.created, 1)
}

func TestHandleFeedbackCompletesCommand(t *testing.T) {
	c, st, pub, _ := newCommandFixture()

	require.NoError(t, c.HandleFeedback(context.Background(), "zone-1", []byte("COMPLETED:PUMP_WATER_ON")))

	assert.Equal(t, []string{"PUMP_WATER_ON"}, st.completed)

	published := pub.on(notificationTopic("ecohub", "zone-1"))
	require.Len(t, published, 1)

	var n Notification
	require.NoError(t, json.Unmarshal(published[0], &n))
	assert.True(t, n.IsCompletionSignal)
	assert.Equal(t, "PUMP_WATER_ON", n.CompletedCommand)
}

func TestHandleFeedbackUnrecognizedPayload(t *testing.T) {
	c, st, pub, _ := newCommandFixture()

	require.NoError(t, c.HandleFeedback(context.Background(), "zone-1", []byte("ACK")))
	require.NoError(t, c.HandleFeedback(context.Background(), "zone-1", []byte("COMPLETED:")))

	assert.Empty(t, st.completed)
	assert.Empty(t, pub.on(notificationTopic("ecohub", "zone-1")))
}

func TestHandleFeedbackUntrackedCommandStillSignals(t *testing.T) {
	c, st, pub, _ := newCommandFixture()
	st.completeErr = store.ErrNotFound

	require.NoError(t, c.HandleFeedback(context.Background(), "zone-1", []byte("COMPLETED:TURN_FAN_ON")))
	assert.Len(t, pub.on(notificationTopic("ecohub", "zone-1")), 1)
}
