package repository

import (
	"github.com/google/wire"
	"inspectra.app/offline-gateway/app/infrastructure/database/repository/syncrepo"
)

var RepositoryProvider = wire.NewSet(
	syncrepo.NewSyncGormRepository,
)
