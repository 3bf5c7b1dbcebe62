package ports

import (
	"context"

	"github.com/bnema/peer-chess/internal/domain"
)

type ContactBook interface {
	List(ctx context.Context) ([]domain.ContactEntry, error)
	Save(ctx context.Context, entry domain.ContactEntry) error
	Remove(ctx context.Context, identity domain.Identity) error
}
