package providers

import (
	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/service"
)

// ProvideCollectionService provides the collection engine.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalogHandle := do.MustInvoke[*CatalogHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)
	// Book writes must reach the search index.
	_ = do.MustInvoke[*service.SearchService](i)

	return service.NewCollectionService(
		storeHandle.Store,
		storeHandle.Store,
		catalogHandle.Catalog,
		service.ReadPagesPolicy(cfg.Collection.ReadPagesPolicy),
		log.Logger.Logger,
	), nil
}

// ProvideAccountService provides the account service.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewAccountService(storeHandle.Store, log.Logger.Logger), nil
}

// ProvideSweeper provides the orphaned book sweeper.
func ProvideSweeper(i do.Injector) (*service.Sweeper, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)
	_ = do.MustInvoke[*service.SearchService](i)

	return service.NewSweeper(storeHandle.Store, service.DefaultSweepGrace, log.Logger.Logger), nil
}
