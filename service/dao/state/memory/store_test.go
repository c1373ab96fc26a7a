package memory

import (
	"testing"

	"github.com/viant/attention/service/dao"
	"github.com/viant/attention/service/dao/state/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) dao.StateStore {
		return New()
	})
}
