package models

import "github.com/google/uuid"

// FarmerLedgerSize is the fixed allocation for a farmer ledger record:
// initialized 1 + farmer 16 + nonce 8 + earned 8 + withdrawn 8 + slot 8.
const FarmerLedgerSize = 1 + 16 + 8 + 8 + 8 + 8

// FarmerLedger tracks one farmer's accrual and withdrawal counters. It is
// created lazily on the farmer's first recorded task completion.
type FarmerLedger struct {
	Initialized        bool
	Farmer             uuid.UUID
	WithdrawalNonce    uint64
	TotalEarned        uint64
	TotalWithdrawn     uint64
	LastWithdrawalSlot uint64
}

// MarshalRecord encodes the ledger into its fixed binary layout.
func (f *FarmerLedger) MarshalRecord() []byte {
	w := recordWriter{buf: make([]byte, FarmerLedgerSize)}
	w.putBool(f.Initialized)
	w.putUUID(f.Farmer)
	w.putUint64(f.WithdrawalNonce)
	w.putUint64(f.TotalEarned)
	w.putUint64(f.TotalWithdrawn)
	w.putUint64(f.LastWithdrawalSlot)
	return w.buf
}

// UnmarshalRecord decodes the fixed binary layout produced by MarshalRecord.
func (f *FarmerLedger) UnmarshalRecord(data []byte) error {
	r := recordReader{buf: data}
	f.Initialized = r.bool()
	f.Farmer = r.uuid()
	f.WithdrawalNonce = r.uint64()
	f.TotalEarned = r.uint64()
	f.TotalWithdrawn = r.uint64()
	f.LastWithdrawalSlot = r.uint64()
	return r.err
}
