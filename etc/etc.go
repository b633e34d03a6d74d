package etc

import (
	"github.com/nrednav/cuid2"
)

// NewFreshID returns a collision-resistant id for history entries.
func NewFreshID() string {
	return cuid2.Generate()
}
