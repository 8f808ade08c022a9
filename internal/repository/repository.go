package repository

import (
	"context"

	"github.com/Sathishchary/Electron-Angular-App/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *model.User) error
}

type ProviderLinkRepository interface {
	Create(ctx context.Context, link *model.ProviderLink) error
	GetByProviderAndExternalID(ctx context.Context, providerName, externalID string) (*model.ProviderLink, error)
	ListByUserID(ctx context.Context, userID string) ([]model.ProviderLink, error)
	DeleteByUserAndProvider(ctx context.Context, userID, providerName string) error
}
