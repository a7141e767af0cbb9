package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort lexicographically by creation
// time, which the transactions table relies on for its creation-order tie-break.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
