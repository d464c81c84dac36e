package ports

import (
	"context"

	"github.com/docbook/booking-system/internal/core/domain"
)

// AccountRepository persists the identity provider's credential records.
// FindByEmail returns a ProviderRejected/UserNotFound error when absent and
// Create returns ProviderRejected/AlreadyInUse on a duplicate email.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
