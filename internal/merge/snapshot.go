package merge

import (
	"sync/atomic"

	"github.com/idrecon/idrecon/internal/model"
)

// snapshot publishes complete entity sets through an atomic pointer swap.
// Readers never block writers and never see a half-merged state.
type snapshot struct {
	ptr atomic.Pointer[model.EntitySet]
}

func (s *snapshot) publish(set *model.EntitySet) {
	s.ptr.Store(set)
}

func (s *snapshot) load() *model.EntitySet {
	return s.ptr.Load()
}
