// Package store provides the opaque byte-record store the reward pool
// persists its records in. Records are created once at a fixed size and
// rewritten in place; nothing is ever deleted.
package store

import (
	"context"
	"errors"

	"github.com/harvestfi/rewardpool/internal/derive"
)

// ErrAlreadyExists is returned by Create when the address is occupied.
var ErrAlreadyExists = errors.New("record already exists")

// ErrNotFound is returned by Read and Write when no record exists.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientBacking is returned by Create when the store cannot
// allocate the requested size.
var ErrInsufficientBacking = errors.New("insufficient backing for record")

// ErrTooLarge is returned by Write when the data exceeds the allocated size.
var ErrTooLarge = errors.New("data exceeds allocated record size")

// RecordStore creates, reads and rewrites fixed-size byte records keyed by
// derived address.
type RecordStore interface {
	Create(ctx context.Context, addr derive.Address, size int) error
	Read(ctx context.Context, addr derive.Address) ([]byte, error)
	Write(ctx context.Context, addr derive.Address, data []byte) error
}
