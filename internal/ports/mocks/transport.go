package mocks

import (
	"context"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/bnema/peer-chess/internal/ports"
	"github.com/stretchr/testify/mock"
)

type Transport struct {
	mock.Mock
	events chan domain.Event
}

var _ ports.Transport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{events: make(chan domain.Event, 16)}
}

func (m *Transport) NegotiateIntent(ctx context.Context, identity domain.Identity, intent domain.Intent) error {
	args := m.Called(ctx, identity, intent)
	return args.Error(0)
}

func (m *Transport) UpdateIntentStatus(ctx context.Context, identity domain.Identity, intent domain.Intent, status domain.IntentStatus) error {
	args := m.Called(ctx, identity, intent, status)
	return args.Error(0)
}

func (m *Transport) SendTo(ctx context.Context, identity domain.Identity, kind domain.MessageKind, payload []byte) error {
	args := m.Called(ctx, identity, kind, payload)
	return args.Error(0)
}

func (m *Transport) Events() <-chan domain.Event {
	return m.events
}

// Deliver queues an inbound event as if the transport had received it.
func (m *Transport) Deliver(event domain.Event) {
	m.events <- event
}

func (m *Transport) Close() error {
	args := m.Called()
	return args.Error(0)
}
