package memory

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/glasshq/glass-server/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestLabCollectionReplacement(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateLab(ctx, &domain.Lab{
		OwnerID: "owner-1",
		Name:    "Lab",
		Visible: true,
		Photos: []domain.Photo{
			{Name: "a", URL: "https://img.example.com/a.jpg"},
		},
		Equipment: domain.BuildEquipment(
			[]string{"laser", "spectrometer"},
			[]string{"laser"},
		),
		Techniques: []domain.Technique{{Name: "raman"}},
	})
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}

	// A nil collection leaves the stored one untouched.
	updated, err := store.UpdateLab(ctx, created.ID, &domain.UpdateLabRequest{
		Name: strPtr("Renamed"),
	})
	if err != nil {
		t.Fatalf("UpdateLab: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("name = %q", updated.Name)
	}
	if len(updated.Photos) != 1 || len(updated.Equipment) != 2 || len(updated.Techniques) != 1 {
		t.Errorf("collections changed by scalar patch: %+v", updated)
	}

	// A non-nil empty collection clears it; siblings are untouched.
	updated, err = store.UpdateLab(ctx, created.ID, &domain.UpdateLabRequest{
		Photos: []domain.Photo{},
	})
	if err != nil {
		t.Fatalf("UpdateLab: %v", err)
	}
	if len(updated.Photos) != 0 {
		t.Errorf("photos not cleared: %+v", updated.Photos)
	}
	if len(updated.Equipment) != 2 {
		t.Errorf("equipment touched by photos patch: %+v", updated.Equipment)
	}

	// A non-empty collection replaces wholesale.
	updated, err = store.UpdateLab(ctx, created.ID, &domain.UpdateLabRequest{
		Equipment:         []string{"centrifuge"},
		PriorityEquipment: []string{"centrifuge"},
	})
	if err != nil {
		t.Fatalf("UpdateLab: %v", err)
	}
	if len(updated.Equipment) != 1 || updated.Equipment[0].Tag != "centrifuge" || !updated.Equipment[0].Priority {
		t.Errorf("equipment = %+v", updated.Equipment)
	}
}

// The same patch applied twice must produce the same state, modulo
// updatedAt.
func TestUpdateLabIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateLab(ctx, &domain.Lab{
		Name:       "Lab",
		Visible:    true,
		Equipment:  domain.BuildEquipment([]string{"bench"}, nil),
		Techniques: []domain.Technique{{Name: "hplc"}},
	})
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}

	patch := &domain.UpdateLabRequest{
		Name:              strPtr("Renamed"),
		Location:          strPtr("Building 9"),
		Equipment:         []string{"laser", "cryostat"},
		PriorityEquipment: []string{"laser"},
		Photos: []domain.Photo{
			{Name: "bench", URL: "https://img.example.com/bench.jpg"},
		},
	}

	first, err := store.UpdateLab(ctx, created.ID, patch)
	if err != nil {
		t.Fatalf("first UpdateLab: %v", err)
	}
	second, err := store.UpdateLab(ctx, created.ID, patch)
	if err != nil {
		t.Fatalf("second UpdateLab: %v", err)
	}

	first.UpdatedAt = second.UpdatedAt
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated patch diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

// A patch that names equipment without priorityEquipment replaces the
// list with every flag recomputed to false: priority is derived from
// the accompanying priority list, never carried over.
func TestEquipmentPatchResetsPriorities(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateLab(ctx, &domain.Lab{
		Name:      "Lab",
		Visible:   true,
		Equipment: domain.BuildEquipment([]string{"laser"}, []string{"laser"}),
	})
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}
	if !created.Equipment[0].Priority {
		t.Fatalf("setup: laser should start as priority")
	}

	updated, err := store.UpdateLab(ctx, created.ID, &domain.UpdateLabRequest{
		Equipment: []string{"laser", "bench"},
	})
	if err != nil {
		t.Fatalf("UpdateLab: %v", err)
	}
	for _, item := range updated.Equipment {
		if item.Priority {
			t.Errorf("%q kept a priority flag the patch never named", item.Tag)
		}
	}
}

func TestUpdateLabNotFound(t *testing.T) {
	store := New()
	_, err := store.UpdateLab(context.Background(), 42, &domain.UpdateLabRequest{})
	if err != domain.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// Two callers race to replace the same photo collection. The winner is
// arbitrary but the surviving state must be exactly one caller's list,
// never an interleaving.
func TestConcurrentPhotoReplacement(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateLab(ctx, &domain.Lab{Name: "Lab", Visible: true})
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}

	setA := []domain.Photo{
		{Name: "a1", URL: "https://img.example.com/a1.jpg"},
		{Name: "a2", URL: "https://img.example.com/a2.jpg"},
	}
	setB := []domain.Photo{
		{Name: "b1", URL: "https://img.example.com/b1.jpg"},
	}

	var wg sync.WaitGroup
	for _, photos := range [][]domain.Photo{setA, setB} {
		wg.Add(1)
		go func(photos []domain.Photo) {
			defer wg.Done()
			if _, err := store.UpdateLab(ctx, created.ID, &domain.UpdateLabRequest{Photos: photos}); err != nil {
				t.Errorf("UpdateLab: %v", err)
			}
		}(photos)
	}
	wg.Wait()

	lab, err := store.GetLab(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetLab: %v", err)
	}
	if !reflect.DeepEqual(lab.Photos, setA) && !reflect.DeepEqual(lab.Photos, setB) {
		t.Errorf("photos are an interleaving of both writers: %+v", lab.Photos)
	}
}

func TestBlankPhotoURLsFiltered(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateLab(ctx, &domain.Lab{
		Name:    "Lab",
		Visible: true,
		Photos: []domain.Photo{
			{Name: "ok", URL: "https://img.example.com/ok.jpg"},
			{Name: "blank", URL: "   "},
			{Name: "empty", URL: ""},
		},
	})
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}

	if len(created.Photos) != 1 || created.Photos[0].Name != "ok" {
		t.Errorf("photos = %+v", created.Photos)
	}
}

func TestMemberOrdering(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateTeam(ctx, &domain.Team{
		Name:    "Team",
		Visible: true,
		Members: []domain.Member{
			{Name: "Cleo", Role: "Tech"},
			{Name: "Abe", Role: "Postdoc"},
			{Name: "Mia", Role: "PI", Lead: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	wantOrder := []string{"Mia", "Abe", "Cleo"}
	for i, want := range wantOrder {
		if created.Members[i].Name != want {
			t.Errorf("members[%d] = %q, want %q", i, created.Members[i].Name, want)
		}
	}
}

func TestIDAssignment(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, _ := store.CreateLab(ctx, &domain.Lab{Name: "One", Visible: true})
	second, _ := store.CreateLab(ctx, &domain.Lab{Name: "Two", Visible: true})
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d", first.ID, second.ID)
	}

	// Deleting the newest lab frees its id for the next create.
	if err := store.DeleteLab(ctx, second.ID); err != nil {
		t.Fatalf("DeleteLab: %v", err)
	}
	third, _ := store.CreateLab(ctx, &domain.Lab{Name: "Three", Visible: true})
	if third.ID != 2 {
		t.Errorf("id after delete = %d, want 2", third.ID)
	}
}

func TestDeleteTeamUnlinksLabs(t *testing.T) {
	store := New()
	ctx := context.Background()

	team, _ := store.CreateTeam(ctx, &domain.Team{Name: "Team", Visible: true})
	lab, _ := store.CreateLab(ctx, &domain.Lab{
		Name:    "Lab",
		Visible: true,
		TeamIDs: []int64{team.ID},
	})

	if err := store.DeleteTeam(ctx, team.ID); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}

	got, err := store.GetLab(ctx, lab.ID)
	if err != nil {
		t.Fatalf("GetLab: %v", err)
	}
	if len(got.TeamIDs) != 0 {
		t.Errorf("lab still linked to deleted team: %v", got.TeamIDs)
	}
}

func TestUpsertProfilePreservesBilling(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.UpsertProfile(ctx, &domain.Profile{
		Subject: "sub-1",
		Email:   "old@example.com",
		Name:    "Old Name",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	if err := store.SetProfileCustomer(ctx, "sub-1", "cus_123"); err != nil {
		t.Fatalf("SetProfileCustomer: %v", err)
	}
	if err := store.UpdateSubscriptionByCustomer(ctx, "cus_123", "active", "pro"); err != nil {
		t.Fatalf("UpdateSubscriptionByCustomer: %v", err)
	}

	// A fresh login updates claims but never touches billing state.
	updated, err := store.UpsertProfile(ctx, &domain.Profile{
		Subject: "sub-1",
		Email:   "new@example.com",
		Name:    "New Name",
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	if updated.Email != "new@example.com" || updated.Name != "New Name" {
		t.Errorf("claims not refreshed: %+v", updated)
	}
	if updated.StripeCustomerID != "cus_123" || updated.SubscriptionStatus != "active" || updated.SubscriptionPlan != "pro" {
		t.Errorf("billing state lost on upsert: %+v", updated)
	}
}

func TestUpdateSubscriptionUnknownCustomer(t *testing.T) {
	store := New()
	err := store.UpdateSubscriptionByCustomer(context.Background(), "cus_missing", "active", "pro")
	if err != domain.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
