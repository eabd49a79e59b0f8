package deck

import (
	"context"
	"testing"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

func TestSliceStore_DelegatesToService(t *testing.T) {
	svc := &fakeService{}
	store := SliceStore(svc)
	ctx := context.Background()

	set := []domain.Slice{{ID: "a", StartPositionMs: 1000, EndPositionMs: 2000}}
	if err := store.UpsertSlices(ctx, "t1", set); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.GetSlices(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !domain.SlicesEqual(got, set) {
		t.Fatalf("slices = %+v, want %+v", got, set)
	}
	bpm := 124.0
	if err := store.SetTrackTempo(ctx, "t1", &bpm, nil); err != nil {
		t.Fatalf("set tempo: %v", err)
	}
}
