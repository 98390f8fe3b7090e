package rabbitmq

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type AcknowledgerMock struct {
	mock.Mock
}

func (m *AcknowledgerMock) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *AcknowledgerMock) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *AcknowledgerMock) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

func TestHandle(t *testing.T) {
	failing := func([]byte) error { return errors.New("smtp down") }

	tests := []struct {
		name        string
		redelivered bool
		handler     Handler
		setup       func(*AcknowledgerMock)
	}{
		{
			name:    "ack on success",
			handler: func([]byte) error { return nil },
			setup: func(a *AcknowledgerMock) {
				a.On("Ack", uint64(7), false).Return(nil).Once()
			},
		},
		{
			name:    "requeue on first failure",
			handler: failing,
			setup: func(a *AcknowledgerMock) {
				a.On("Nack", uint64(7), false, true).Return(nil).Once()
			},
		},
		{
			name:        "drop redelivered failure",
			redelivered: true,
			handler:     failing,
			setup: func(a *AcknowledgerMock) {
				a.On("Nack", uint64(7), false, false).Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := new(AcknowledgerMock)
			tt.setup(ack)

			handle(newNoopLogger(), amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  7,
				Redelivered:  tt.redelivered,
				Body:         []byte(`{}`),
			}, tt.handler)

			ack.AssertExpectations(t)
		})
	}
}

func TestHandle_PassesBody(t *testing.T) {
	ack := new(AcknowledgerMock)
	ack.On("Ack", uint64(1), false).Return(nil).Once()

	var got []byte
	handle(newNoopLogger(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("hello")}, func(b []byte) error {
		got = b
		return nil
	})

	assert.Equal(t, []byte("hello"), got)
	ack.AssertExpectations(t)
}
