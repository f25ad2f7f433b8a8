package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPoolConfigRoundTrip(t *testing.T) {
	in := PoolConfig{
		Initialized:        true,
		Authority:          uuid.New(),
		FeePercentage:      10,
		TotalDistributed:   900,
		TotalFeesCollected: 100,
		Paused:             true,
	}

	data := in.MarshalRecord()
	if len(data) != PoolConfigSize {
		t.Fatalf("encoded size: got %d, want %d", len(data), PoolConfigSize)
	}

	var out PoolConfig
	if err := out.UnmarshalRecord(data); err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestFarmerLedgerRoundTrip(t *testing.T) {
	in := FarmerLedger{
		Initialized:        true,
		Farmer:             uuid.New(),
		WithdrawalNonce:    7,
		TotalEarned:        5000,
		TotalWithdrawn:     1200,
		LastWithdrawalSlot: 42,
	}

	var out FarmerLedger
	if err := out.UnmarshalRecord(in.MarshalRecord()); err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestTaskRecordRoundTrip(t *testing.T) {
	in := TaskRecord{
		Initialized:    true,
		TaskID:         "task-abc-123",
		Farmer:         uuid.New(),
		PoolID:         "pool-main",
		RewardAmount:   1000,
		AssetID:        uuid.New(),
		Claimed:        true,
		CompletionSlot: 99,
	}

	data, err := in.MarshalRecord()
	if err != nil {
		t.Fatalf("MarshalRecord: %v", err)
	}
	if len(data) != TaskRecordSize {
		t.Fatalf("encoded size: got %d, want %d", len(data), TaskRecordSize)
	}

	var out TaskRecord
	if err := out.UnmarshalRecord(data); err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestTaskRecordStringCaps(t *testing.T) {
	rec := TaskRecord{
		Initialized: true,
		TaskID:      strings.Repeat("a", MaxTaskIDLen+1),
	}
	if _, err := rec.MarshalRecord(); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("oversized taskId: got %v, want ErrStringTooLong", err)
	}

	// Exactly at the cap is fine.
	rec.TaskID = strings.Repeat("a", MaxTaskIDLen)
	rec.PoolID = strings.Repeat("b", MaxPoolIDLen)
	data, err := rec.MarshalRecord()
	if err != nil {
		t.Fatalf("MarshalRecord at cap: %v", err)
	}
	var out TaskRecord
	if err := out.UnmarshalRecord(data); err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if out.TaskID != rec.TaskID || out.PoolID != rec.PoolID {
		t.Error("capped strings must round trip intact")
	}
}

func TestUnmarshalRejectsTruncatedRecord(t *testing.T) {
	var cfg PoolConfig
	if err := cfg.UnmarshalRecord(make([]byte, 3)); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("truncated pool config: got %v, want ErrMalformedRecord", err)
	}

	var rec TaskRecord
	if err := rec.UnmarshalRecord(make([]byte, 10)); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("truncated task record: got %v, want ErrMalformedRecord", err)
	}
}
