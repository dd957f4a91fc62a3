package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestClientMock_SetupStream(t *testing.T) {
	client := new(ClientMock)
	cfg := &nats.StreamConfig{
		Name:     "reconcile_outcomes",
		Subjects: []string{"v1.reconcile.outcome.>"},
	}

	client.On("SetupStream", mock.Anything, cfg).Return(nil).Once()
	assert.NoError(t, client.SetupStream(context.Background(), cfg))

	client.On("SetupStream", mock.Anything, cfg).Return(errors.New("stream setup failed")).Once()
	assert.Error(t, client.SetupStream(context.Background(), cfg))

	client.AssertExpectations(t)
}

func TestClientMock_Publish(t *testing.T) {
	client := new(ClientMock)
	payload := []byte(`{"kind":"matched"}`)
	headers := map[string]string{"call_id": "out-1"}

	client.On("Publish", "v1.reconcile.outcome.matched", payload, headers).Return(nil).Once()
	assert.NoError(t, client.Publish("v1.reconcile.outcome.matched", payload, headers))

	client.AssertExpectations(t)
}
