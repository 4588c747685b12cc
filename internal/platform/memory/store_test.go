package memory

import (
	"testing"

	"github.com/phrazzld/storefront/internal/platform/storage/kvtest"
	"github.com/phrazzld/storefront/internal/store"
)

func TestStore(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) store.KV {
		return New()
	})
}
