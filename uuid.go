package graphkv

import (
	"time"

	"github.com/google/uuid"
)

// OpID identifies a single Get, Set or Call in the logs.
type OpID uuid.UUID

// NewOpID returns a random OpID. Generation is retried briefly, it panics only when the
// random source keeps failing.
func NewOpID() OpID {
	var err error
	for range 10 {
		var id uuid.UUID
		if id, err = uuid.NewRandom(); err == nil {
			return OpID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

func (id OpID) String() string {
	return uuid.UUID(id).String()
}
