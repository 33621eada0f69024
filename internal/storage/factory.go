package storage

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/tickwatch/internal/common"
)

// NewStore creates a Store from configuration. Badger is the only
// backend today; the indirection keeps call sites stable if another is
// added.
func NewStore(config *common.StorageConfig, logger *common.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(config.Backend))
	if backend == "" {
		backend = "badger"
	}

	switch backend {
	case "badger":
		path := config.Path
		if path == "" {
			path = "data/market"
		}
		return NewBadgerStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", config.Backend)
	}
}
