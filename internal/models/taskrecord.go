package models

import "github.com/google/uuid"

// TaskRecordSize is the fixed allocation for a task completion record:
// initialized 1 + taskId (2+64) + farmer 16 + poolId (2+64) + reward 8 +
// asset 16 + claimed 1 + slot 8.
const TaskRecordSize = 1 + (2 + MaxTaskIDLen) + 16 + (2 + MaxPoolIDLen) + 8 + 16 + 1 + 8

// TaskRecord is the immutable completion record for one task. Once written,
// only the Claimed flag ever changes, exactly once.
type TaskRecord struct {
	Initialized    bool
	TaskID         string
	Farmer         uuid.UUID
	PoolID         string
	RewardAmount   uint64
	AssetID        uuid.UUID
	Claimed        bool
	CompletionSlot uint64
}

// MarshalRecord encodes the record into its fixed binary layout. It fails
// only when a string field exceeds its cap.
func (t *TaskRecord) MarshalRecord() ([]byte, error) {
	w := recordWriter{buf: make([]byte, TaskRecordSize)}
	w.putBool(t.Initialized)
	if err := w.putString(t.TaskID, MaxTaskIDLen); err != nil {
		return nil, err
	}
	w.putUUID(t.Farmer)
	if err := w.putString(t.PoolID, MaxPoolIDLen); err != nil {
		return nil, err
	}
	w.putUint64(t.RewardAmount)
	w.putUUID(t.AssetID)
	w.putBool(t.Claimed)
	w.putUint64(t.CompletionSlot)
	return w.buf, nil
}

// UnmarshalRecord decodes the fixed binary layout produced by MarshalRecord.
func (t *TaskRecord) UnmarshalRecord(data []byte) error {
	r := recordReader{buf: data}
	t.Initialized = r.bool()
	t.TaskID = r.string(MaxTaskIDLen)
	t.Farmer = r.uuid()
	t.PoolID = r.string(MaxPoolIDLen)
	t.RewardAmount = r.uint64()
	t.AssetID = r.uuid()
	t.Claimed = r.bool()
	t.CompletionSlot = r.uint64()
	return r.err
}
