package ids

import "github.com/segmentio/ksuid"

// New returns a sortable, collision-resistant id for users and visits.
func New() string {
	return ksuid.New().String()
}
