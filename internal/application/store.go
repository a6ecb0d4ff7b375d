package application

import (
	"context"

	"smart-home-bot/internal/domain"
)

// DeviceStore owns device records. The pipeline reads snapshots and proposes
// parameter changes; writes are last-writer-wins per device.
type DeviceStore interface {
	UserDevices(ctx context.Context, userKey string) ([]domain.Device, error)
	Templates(ctx context.Context) ([]domain.Device, error)
	UpdateParams(ctx context.Context, deviceID int64, params map[string]string) error
	AddOwned(ctx context.Context, userID int64, device domain.NewDevice) error
	RemoveOwned(ctx context.Context, deviceID int64) error
}

// UserDirectory maps an external chat identity to an internal user id.
type UserDirectory interface {
	ResolveUser(ctx context.Context, externalKey string) (int64, bool, error)
}

// TemplateCatalog serves the list of addable device types.
type TemplateCatalog interface {
	Templates(ctx context.Context) ([]domain.Device, error)
}
