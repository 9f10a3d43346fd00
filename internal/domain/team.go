package domain

import "time"

// Team represents a research team on the marketplace. Teams can be
// linked to labs many-to-many; the link rows live with the lab side.
type Team struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	Visible     Flag      `json:"visible" db:"visible"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Child collections, stored in separate tables. Members are always
	// returned leads-first, then alphabetically by name.
	Members    []Member `json:"members" db:"-"`
	FocusAreas []string `json:"focusAreas" db:"-"`
	Photos     []Photo  `json:"photos" db:"-"`
}

// Member is a team member row. At most one member may carry the lead
// flag; the validator rejects payloads with more than one.
type Member struct {
	Name    string `json:"name" db:"name" validate:"required,max=200"`
	Role    string `json:"role" db:"role" validate:"required,max=200"`
	Email   string `json:"email" db:"email" validate:"omitempty,email,max=320"`
	LinkURL string `json:"linkUrl" db:"link_url" validate:"omitempty,max=1000"`
	Lead    Flag   `json:"lead" db:"lead"`
}

// CreateTeamRequest is the request body for creating a team.
type CreateTeamRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	AvatarURL   string   `json:"avatarUrl" validate:"omitempty,url,max=1000"`
	Visible     *bool    `json:"visible,omitempty"`
	Members     []Member `json:"members" validate:"dive"`
	FocusAreas  []string `json:"focusAreas"`
	Photos      []Photo  `json:"photos"`
}

// UpdateTeamRequest is the request body for updating a team. Same
// presence semantics as UpdateLabRequest: nil leaves a collection
// untouched, an empty non-nil slice clears it.
type UpdateTeamRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	AvatarURL   *string  `json:"avatarUrl,omitempty" validate:"omitempty,url,max=1000"`
	Visible     *bool    `json:"visible,omitempty"`
	Members     []Member `json:"members,omitempty" validate:"omitempty,dive"`
	FocusAreas  []string `json:"focusAreas,omitempty"`
	Photos      []Photo  `json:"photos,omitempty"`
}
