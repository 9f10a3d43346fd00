package validation

import (
	"strings"
	"testing"

	"github.com/glasshq/glass-server/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestValidateCreateLab(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.CreateLabRequest
		wantField string
	}{
		{
			name: "valid",
			req: domain.CreateLabRequest{
				Name:    "Lab",
				Website: "https://lab.example.com",
			},
		},
		{
			name:      "missing name",
			req:       domain.CreateLabRequest{},
			wantField: "name",
		},
		{
			name:      "name too long",
			req:       domain.CreateLabRequest{Name: strings.Repeat("x", 201)},
			wantField: "name",
		},
		{
			name:      "invalid website",
			req:       domain.CreateLabRequest{Name: "Lab", Website: "not a url"},
			wantField: "website",
		},
		{
			name:      "invalid logo url",
			req:       domain.CreateLabRequest{Name: "Lab", LogoURL: "::bad::"},
			wantField: "logoUrl",
		},
		{
			name: "blank photo url",
			req: domain.CreateLabRequest{
				Name:   "Lab",
				Photos: []domain.Photo{{Name: "x", URL: "  "}},
			},
			wantField: "photos[0].url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateLab(&tt.req)
			checkValidationResult(t, err, tt.wantField)
		})
	}
}

func TestValidateUpdateLab(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.UpdateLabRequest
		wantField string
	}{
		{
			name: "valid partial",
			req:  domain.UpdateLabRequest{Name: strPtr("New Name")},
		},
		{
			name: "empty patch is valid",
			req:  domain.UpdateLabRequest{},
		},
		{
			name:      "empty name",
			req:       domain.UpdateLabRequest{Name: strPtr("")},
			wantField: "name",
		},
		{
			name:      "invalid website",
			req:       domain.UpdateLabRequest{Website: strPtr("nope")},
			wantField: "website",
		},
		{
			name: "priority without equipment",
			req: domain.UpdateLabRequest{
				PriorityEquipment: []string{"laser"},
			},
			wantField: "priorityEquipment",
		},
		{
			name: "priority with equipment",
			req: domain.UpdateLabRequest{
				Equipment:         []string{"laser"},
				PriorityEquipment: []string{"laser"},
			},
		},
		{
			name: "clearing equipment is valid",
			req: domain.UpdateLabRequest{
				Equipment: []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateLab(&tt.req)
			checkValidationResult(t, err, tt.wantField)
		})
	}
}

func TestValidateCreateTeam(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.CreateTeamRequest
		wantField string
	}{
		{
			name: "valid with lead",
			req: domain.CreateTeamRequest{
				Name: "Team",
				Members: []domain.Member{
					{Name: "Mia", Role: "PI", Lead: true},
					{Name: "Abe", Role: "Postdoc", Email: "abe@example.com"},
				},
			},
		},
		{
			name:      "missing name",
			req:       domain.CreateTeamRequest{},
			wantField: "name",
		},
		{
			name: "member missing role",
			req: domain.CreateTeamRequest{
				Name:    "Team",
				Members: []domain.Member{{Name: "Mia"}},
			},
			wantField: "members[0].role",
		},
		{
			name: "member bad email",
			req: domain.CreateTeamRequest{
				Name:    "Team",
				Members: []domain.Member{{Name: "Mia", Role: "PI", Email: "nope"}},
			},
			wantField: "members[0].email",
		},
		{
			name: "two leads",
			req: domain.CreateTeamRequest{
				Name: "Team",
				Members: []domain.Member{
					{Name: "Mia", Role: "PI", Lead: true},
					{Name: "Abe", Role: "Co-PI", Lead: true},
				},
			},
			wantField: "members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateTeam(&tt.req)
			checkValidationResult(t, err, tt.wantField)
		})
	}
}

func TestValidateUpdateTeam(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.UpdateTeamRequest
		wantField string
	}{
		{
			name: "empty patch is valid",
			req:  domain.UpdateTeamRequest{},
		},
		{
			name: "clearing members is valid",
			req:  domain.UpdateTeamRequest{Members: []domain.Member{}},
		},
		{
			name: "two leads in patch",
			req: domain.UpdateTeamRequest{
				Members: []domain.Member{
					{Name: "Mia", Role: "PI", Lead: true},
					{Name: "Abe", Role: "Co-PI", Lead: true},
				},
			},
			wantField: "members",
		},
		{
			name:      "bad avatar url",
			req:       domain.UpdateTeamRequest{AvatarURL: strPtr("nope")},
			wantField: "avatarUrl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateTeam(&tt.req)
			checkValidationResult(t, err, tt.wantField)
		})
	}
}

// checkValidationResult asserts the error matches expectations: no
// error when wantField is empty, otherwise the first failure must name
// that field.
func checkValidationResult(t *testing.T, err error, wantField string) {
	t.Helper()

	if wantField == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}

	if err == nil {
		t.Fatalf("expected error on field %q, got nil", wantField)
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	found := false
	for _, ve := range errs {
		if ve.Field == wantField {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no error for field %q in %v", wantField, errs)
	}
}
