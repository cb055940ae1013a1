package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/piso3/piso/internal/db"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/rotation"
)

func TestCreateAndGetSupply(t *testing.T) {
	database := db.NewTestDB(t)
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")

	s := mustWater(t, database, nil, a, b)
	if s.HolderName != "ana" {
		t.Errorf("expected holder name 'ana', got %q", s.HolderName)
	}
	if len(s.Roster) != 2 || s.Roster[0] != a.ID || s.Roster[1] != b.ID {
		t.Errorf("unexpected roster %v", s.Roster)
	}
	if s.LastRestock != nil {
		t.Error("expected never-restocked supply")
	}
}

func TestCreateSupplyRejectsUnknownRosterMember(t *testing.T) {
	database := db.NewTestDB(t)
	a := mustRoommate(t, database, "ana")

	_, err := CreateSupply(context.Background(), database, model.Supply{
		Name: "Soap", Category: model.CategoryDishSoap, DurationDays: 14,
		Roster: []int64{a.ID, 999}, CurrentHolderID: a.ID,
	})
	if model.KindOf(err) != model.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListSupplies(t *testing.T) {
	database := db.NewTestDB(t)
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	mustWater(t, database, nil, a, b)
	mustWater(t, database, daysBefore(2), b, a)

	supplies, err := ListSupplies(context.Background(), database)
	if err != nil {
		t.Fatalf("ListSupplies: %v", err)
	}
	if len(supplies) != 2 {
		t.Fatalf("expected 2 supplies, got %d", len(supplies))
	}
	if supplies[1].Roster[0] != b.ID || supplies[1].Roster[1] != a.ID {
		t.Errorf("unexpected roster for second supply: %v", supplies[1].Roster)
	}
	if supplies[1].LastRestock == nil || !supplies[1].LastRestock.Equal(*daysBefore(2)) {
		t.Errorf("unexpected last restock %v", supplies[1].LastRestock)
	}
}

func TestCompleteTurn(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	c := mustRoommate(t, database, "cris")
	s := mustWater(t, database, daysBefore(6), a, b, c)

	updated, purchase, err := CompleteTurn(ctx, database, s.ID, a.ID, "two packs", testNow)
	if err != nil {
		t.Fatalf("CompleteTurn: %v", err)
	}
	if updated.CurrentHolderID != b.ID {
		t.Errorf("expected turn to pass to ben, got %d", updated.CurrentHolderID)
	}
	if updated.Blocked {
		t.Error("expected unblocked supply")
	}
	if updated.LastRestock == nil || !updated.LastRestock.Equal(testNow) {
		t.Errorf("expected last restock %v, got %v", testNow, updated.LastRestock)
	}
	if purchase.ID == 0 || purchase.ObservedDays == nil || *purchase.ObservedDays != 6 {
		t.Errorf("unexpected purchase %+v", purchase)
	}

	history, err := ListPurchases(ctx, database, s.ID)
	if err != nil {
		t.Fatalf("ListPurchases: %v", err)
	}
	if len(history) != 1 || history[0].PurchaserName != "ana" || history[0].Note != "two packs" {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestCompleteTurnWrapsAround(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	s := mustWater(t, database, nil, a, b)

	if _, _, err := CompleteTurn(ctx, database, s.ID, a.ID, "", testNow); err != nil {
		t.Fatalf("first CompleteTurn: %v", err)
	}
	updated, purchase, err := CompleteTurn(ctx, database, s.ID, b.ID, "", testNow)
	if err != nil {
		t.Fatalf("second CompleteTurn: %v", err)
	}
	if updated.CurrentHolderID != a.ID {
		t.Errorf("expected turn to wrap to ana, got %d", updated.CurrentHolderID)
	}
	if purchase.ObservedDays == nil || *purchase.ObservedDays != 0 {
		t.Errorf("expected observed duration 0, got %v", purchase.ObservedDays)
	}
}

func TestCompleteTurnRejections(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	s := mustWater(t, database, nil, a, b)

	if _, _, err := CompleteTurn(ctx, database, s.ID, b.ID, "", testNow); !errors.Is(err, rotation.ErrNotYourTurn) {
		t.Errorf("expected not-your-turn, got %v", err)
	}

	if _, err := BlockSupply(ctx, database, s.ID, testNow); err != nil {
		t.Fatalf("BlockSupply: %v", err)
	}
	if _, _, err := CompleteTurn(ctx, database, s.ID, a.ID, "", testNow); !errors.Is(err, rotation.ErrTurnLocked) {
		t.Errorf("expected turn-locked, got %v", err)
	}

	if _, _, err := CompleteTurn(ctx, database, 999, a.ID, "", testNow); model.KindOf(err) != model.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}

	history, _ := ListPurchases(ctx, database, s.ID)
	if len(history) != 0 {
		t.Errorf("rejected turns must not record purchases, got %d", len(history))
	}
}

func TestCompleteTurnConcurrent(t *testing.T) {
	database := db.NewFileTestDB(t)
	ctx := context.Background()

	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	s := mustWater(t, database, nil, a, b)

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := CompleteTurn(ctx, database, s.ID, a.ID, "", testNow); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one completion to win, got %d", succeeded)
	}
	history, _ := ListPurchases(ctx, database, s.ID)
	if len(history) != 1 {
		t.Errorf("expected 1 purchase, got %d", len(history))
	}
	got, _ := GetSupply(ctx, database, s.ID)
	if got.CurrentHolderID != b.ID {
		t.Errorf("expected ben to hold the turn, got %d", got.CurrentHolderID)
	}
}

func TestForceAdvance(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	b := mustRoommate(t, database, "ben")
	s := mustWater(t, database, daysBefore(9), a, b)

	if _, err := BlockSupply(ctx, database, s.ID, testNow); err != nil {
		t.Fatalf("BlockSupply: %v", err)
	}

	unlocked, err := ForceAdvance(ctx, database, s.ID, false, testNow)
	if err != nil {
		t.Fatalf("ForceAdvance unlock: %v", err)
	}
	if unlocked.Blocked || unlocked.CurrentHolderID != a.ID {
		t.Errorf("expected unblocked turn still held by ana, got %+v", unlocked)
	}

	BlockSupply(ctx, database, s.ID, testNow)
	advanced, err := ForceAdvance(ctx, database, s.ID, true, testNow)
	if err != nil {
		t.Fatalf("ForceAdvance advance: %v", err)
	}
	if advanced.Blocked || advanced.CurrentHolderID != b.ID {
		t.Errorf("expected unblocked turn held by ben, got %+v", advanced)
	}

	history, _ := ListPurchases(ctx, database, s.ID)
	if len(history) != 0 {
		t.Errorf("force advance must not record purchases, got %d", len(history))
	}
}

func TestUpdateDuration(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	s := mustWater(t, database, nil, a)

	if err := UpdateDuration(ctx, database, s.ID, 10, testNow); err != nil {
		t.Fatalf("UpdateDuration: %v", err)
	}
	got, _ := GetSupply(ctx, database, s.ID)
	if got.DurationDays != 10 {
		t.Errorf("expected 10 days, got %d", got.DurationDays)
	}

	if err := UpdateDuration(ctx, database, s.ID, 0, testNow); model.KindOf(err) != model.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := UpdateDuration(ctx, database, 999, 5, testNow); model.KindOf(err) != model.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSupplyPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	a := mustRoommate(t, database, "ana")
	s := mustWater(t, database, nil, a)

	photo, err := GetSupplyPhoto(ctx, database, s.ID)
	if err != nil || photo != nil {
		t.Fatalf("expected no photo, got %v, %v", photo, err)
	}

	if err := SetSupplyPhoto(ctx, database, s.ID, []byte{0xff, 0xd8, 0x01}, testNow); err != nil {
		t.Fatalf("SetSupplyPhoto: %v", err)
	}
	photo, _ = GetSupplyPhoto(ctx, database, s.ID)
	if len(photo) != 3 {
		t.Errorf("expected stored photo, got %v", photo)
	}
	got, _ := GetSupply(ctx, database, s.ID)
	if !got.HasPhoto {
		t.Error("expected HasPhoto")
	}
}
