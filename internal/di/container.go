// Package di wires the bookworm server's components with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/auth"
	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/di/providers"
	"github.com/ablbsk/bookworm-api/internal/service"
)

// NewContainer creates the DI container for cfg. Components are built
// lazily on first invocation.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Catalog
	do.Provide(injector, providers.ProvideSearchCache)
	do.Provide(injector, providers.ProvideCatalog)

	// Auth
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideAccountService)
	do.Provide(injector, providers.ProvideSweeper)

	// Workers
	do.Provide(injector, providers.ProvideSweepJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the server components and starts the background
// workers and the HTTP listener.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		func() error { _, err := do.Invoke[*providers.LoggerHandle](injector); return err },
		func() error { _, err := do.Invoke[*providers.StoreHandle](injector); return err },
		func() error { _, err := do.Invoke[*service.SearchService](injector); return err },
		func() error { _, err := do.Invoke[*providers.CatalogHandle](injector); return err },
		func() error { _, err := do.Invoke[*auth.TokenService](injector); return err },
		func() error { _, err := do.Invoke[*service.CollectionService](injector); return err },
		func() error { _, err := do.Invoke[*service.AccountService](injector); return err },
		func() error { _, err := do.Invoke[*providers.SweepJob](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)
	return nil
}
