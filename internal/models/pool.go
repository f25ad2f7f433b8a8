package models

import "github.com/google/uuid"

// PoolConfigSize is the fixed allocation for the singleton pool record:
// initialized 1 + authority 16 + fee 1 + distributed 8 + fees 8 + paused 1.
const PoolConfigSize = 1 + 16 + 1 + 8 + 8 + 1

// PoolConfig is the singleton configuration and aggregate-counter record for
// the reward pool. It lives at the well-known derived pool address.
type PoolConfig struct {
	Initialized        bool
	Authority          uuid.UUID
	FeePercentage      uint8
	TotalDistributed   uint64
	TotalFeesCollected uint64
	Paused             bool
}

// MarshalRecord encodes the pool config into its fixed binary layout.
func (p *PoolConfig) MarshalRecord() []byte {
	w := recordWriter{buf: make([]byte, PoolConfigSize)}
	w.putBool(p.Initialized)
	w.putUUID(p.Authority)
	w.putUint8(p.FeePercentage)
	w.putUint64(p.TotalDistributed)
	w.putUint64(p.TotalFeesCollected)
	w.putBool(p.Paused)
	return w.buf
}

// UnmarshalRecord decodes the fixed binary layout produced by MarshalRecord.
func (p *PoolConfig) UnmarshalRecord(data []byte) error {
	r := recordReader{buf: data}
	p.Initialized = r.bool()
	p.Authority = r.uuid()
	p.FeePercentage = r.uint8()
	p.TotalDistributed = r.uint64()
	p.TotalFeesCollected = r.uint64()
	p.Paused = r.bool()
	return r.err
}
