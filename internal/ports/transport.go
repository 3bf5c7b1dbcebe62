package ports

import (
	"context"

	"github.com/bnema/peer-chess/internal/domain"
)

// Transport is the peer channel a session is driven through. Delivery is not
// guaranteed. None of the methods wait for the remote peer.
type Transport interface {
	// NegotiateIntent asks the transport to agree intent with identity. The
	// outcome arrives later on Events as an EventIntentNegotiated.
	NegotiateIntent(ctx context.Context, identity domain.Identity, intent domain.Intent) error
	UpdateIntentStatus(ctx context.Context, identity domain.Identity, intent domain.Intent, status domain.IntentStatus) error
	SendTo(ctx context.Context, identity domain.Identity, kind domain.MessageKind, payload []byte) error
	Events() <-chan domain.Event
	Close() error
}
