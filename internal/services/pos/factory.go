package pos

import (
	"context"
	"fmt"
	"log/slog"

	"venuepass/internal/services/pos/square"
	"venuepass/internal/services/pos/toast"
)

// Factory creates provider instances from provider-specific configs.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) CreateProvider(ctx context.Context, name ProviderName, config interface{}) (Provider, error) {
	switch name {
	case ProviderToast:
		toastConfig, ok := config.(*toast.Config)
		if !ok {
			return nil, fmt.Errorf("invalid Toast config type, expected *toast.Config")
		}
		return NewToastAdapter(ctx, toastConfig)

	case ProviderSquare:
		squareConfig, ok := config.(*square.Config)
		if !ok {
			return nil, fmt.Errorf("invalid Square config type, expected *square.Config")
		}
		return NewSquareAdapter(squareConfig), nil

	default:
		return nil, fmt.Errorf("unsupported POS provider: %s", name)
	}
}

func (f *Factory) SupportedProviders() []ProviderName {
	return []ProviderName{ProviderToast, ProviderSquare}
}

// Registry manages the providers configured for this deployment.
type Registry struct {
	providers map[ProviderName]Provider
	factory   *Factory
}

func NewRegistry(factory *Factory) *Registry {
	return &Registry{
		providers: make(map[ProviderName]Provider),
		factory:   factory,
	}
}

func (r *Registry) Register(ctx context.Context, name ProviderName, config interface{}) error {
	provider, err := r.factory.CreateProvider(ctx, name, config)
	if err != nil {
		return fmt.Errorf("failed to create %s provider: %w", name, err)
	}
	r.providers[name] = provider
	return nil
}

// RegisterProvider installs an already-constructed provider, bypassing the
// factory. Used for custom integrations and in tests.
func (r *Registry) RegisterProvider(name ProviderName, provider Provider) {
	r.providers[name] = provider
}

func (r *Registry) Get(name ProviderName) (Provider, error) {
	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("POS provider %s not registered", name)
	}
	return provider, nil
}

func (r *Registry) Names() []ProviderName {
	names := make([]ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Close(ctx context.Context) {
	for name, provider := range r.providers {
		if err := provider.Close(ctx); err != nil {
			slog.Error("closing POS provider", "provider", name, "error", err)
		}
	}
}
