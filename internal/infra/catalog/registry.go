// Package catalog keeps an in-memory snapshot of the device template catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"smart-home-bot/internal/application"
	"smart-home-bot/internal/domain"
)

// Registry serves device templates from memory and refreshes them from the
// backing catalog on Sync.
type Registry struct {
	source application.TemplateCatalog
	logger *slog.Logger
	onSync func(ctx context.Context, templates []domain.Device) error

	mu        sync.RWMutex
	templates []domain.Device
	synced    bool
}

func NewRegistry(source application.TemplateCatalog, logger *slog.Logger) *Registry {
	return &Registry{
		source: source,
		logger: logger,
	}
}

// OnSync registers fn to run after every successful sync, e.g. to pre-embed
// template descriptions. Its failure is logged, not returned.
func (r *Registry) OnSync(fn func(ctx context.Context, templates []domain.Device) error) {
	r.onSync = fn
}

func (r *Registry) Sync(ctx context.Context) error {
	r.logger.Info("syncing device templates")

	templates, err := r.source.Templates(ctx)
	if err != nil {
		return fmt.Errorf("fetching templates: %w", err)
	}

	r.mu.Lock()
	r.templates = templates
	r.synced = true
	r.mu.Unlock()

	r.logger.Info("sync complete", "templates", len(templates))

	if r.onSync != nil {
		if err := r.onSync(ctx, copyDevices(templates)); err != nil {
			r.logger.Warn("post-sync hook failed", "error", err)
		}
	}

	return nil
}

// Templates returns the cached snapshot, syncing first if nothing has been loaded yet.
func (r *Registry) Templates(ctx context.Context) ([]domain.Device, error) {
	r.mu.RLock()
	synced := r.synced
	r.mu.RUnlock()

	if !synced {
		if err := r.Sync(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyDevices(r.templates), nil
}

func (r *Registry) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("## Device templates:\n")
	for _, t := range r.templates {
		sb.WriteString(fmt.Sprintf("- %s (id: %d", t.Name, t.ID))
		for _, k := range t.ParamKeys() {
			sb.WriteString(fmt.Sprintf(", %s=%s", k, t.Params[k]))
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

func (r *Registry) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Sync(ctx); err != nil {
					r.logger.Error("periodic sync failed", "error", err)
				}
			}
		}
	}()
}

func copyDevices(devices []domain.Device) []domain.Device {
	result := make([]domain.Device, len(devices))
	copy(result, devices)
	return result
}
