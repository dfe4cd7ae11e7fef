package log

import (
	"errors"
	"testing"
)

func TestLogFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentWorker).
		WithOperation(OpSync).
		WithError(errors.New("boom")).
		WithBatch("b-1", "bank")

	want := map[string]any{
		FieldComponent: ComponentWorker,
		FieldOperation: OpSync,
		FieldError:     "boom",
		FieldBatchID:   "b-1",
		FieldSource:    "bank",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %v, want %v", k, fields[k], v)
		}
	}

	slice := fields.ToSlice()
	if len(slice) != len(fields)*2 {
		t.Errorf("ToSlice length = %d, want %d", len(slice), len(fields)*2)
	}
}

func TestLogFieldsNilErrorAndEmptySource(t *testing.T) {
	fields := NewFields().WithError(nil).WithBatch("b-2", "")
	if _, ok := fields[FieldError]; ok {
		t.Error("nil error must not add an error field")
	}
	if _, ok := fields[FieldSource]; ok {
		t.Error("empty source must not add a source field")
	}
	if fields[FieldBatchID] != "b-2" {
		t.Errorf("batch id = %v, want b-2", fields[FieldBatchID])
	}
}
