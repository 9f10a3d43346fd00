package domain

import "time"

// Lab represents a research lab listed on the marketplace.
// A lab owns its child collections (photos, equipment, techniques, team
// links); they are addressed only through the lab, never directly.
type Lab struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"` // identity provider subject
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Website     string    `json:"website" db:"website"`
	Location    string    `json:"location" db:"location"`
	LogoURL     string    `json:"logoUrl" db:"logo_url"`
	Visible     Flag      `json:"visible" db:"visible"` // hidden labs are excluded from public listings
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Child collections, stored in separate tables.
	Photos     []Photo         `json:"photos" db:"-"`
	Equipment  []EquipmentItem `json:"equipment" db:"-"`
	Techniques []Technique     `json:"techniques" db:"-"`
	TeamIDs    []int64         `json:"teamIds" db:"-"`
}

// Photo is a named image URL attached to a lab or team.
// The binary content lives in external object storage; only the public
// URL is persisted here.
type Photo struct {
	Name string `json:"name" db:"name"`
	URL  string `json:"url" db:"url"`
}

// EquipmentItem is an equipment tag with a priority flag. Priority is a
// derived subset of the equipment list, never stored independently.
type EquipmentItem struct {
	Tag      string `json:"tag" db:"tag"`
	Priority Flag   `json:"priority" db:"priority"`
}

// Technique is a named method or capability a lab offers.
type Technique struct {
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// CreateLabRequest is the request body for creating a lab.
// Equipment arrives as two string lists; the priority flag on each
// stored item is computed by membership in PriorityEquipment.
type CreateLabRequest struct {
	Name              string      `json:"name" validate:"required,max=200"`
	Description       string      `json:"description" validate:"max=5000"`
	Website           string      `json:"website" validate:"omitempty,url,max=500"`
	Location          string      `json:"location" validate:"max=200"`
	LogoURL           string      `json:"logoUrl" validate:"omitempty,url,max=1000"`
	Visible           *bool       `json:"visible,omitempty"`
	Photos            []Photo     `json:"photos"`
	Equipment         []string    `json:"equipment"`
	PriorityEquipment []string    `json:"priorityEquipment"`
	Techniques        []Technique `json:"techniques"`
	TeamIDs           []int64     `json:"teamIds"`
}

// UpdateLabRequest is the request body for updating a lab.
// Scalars are pointers: nil means "leave unchanged". Child collections
// follow presence semantics: a nil slice leaves the stored collection
// untouched, a non-nil empty slice clears it.
type UpdateLabRequest struct {
	Name              *string     `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string     `json:"description,omitempty" validate:"omitempty,max=5000"`
	Website           *string     `json:"website,omitempty" validate:"omitempty,url,max=500"`
	Location          *string     `json:"location,omitempty" validate:"omitempty,max=200"`
	LogoURL           *string     `json:"logoUrl,omitempty" validate:"omitempty,url,max=1000"`
	Visible           *bool       `json:"visible,omitempty"`
	Photos            []Photo     `json:"photos,omitempty"`
	Equipment         []string    `json:"equipment,omitempty"`
	PriorityEquipment []string    `json:"priorityEquipment,omitempty"`
	Techniques        []Technique `json:"techniques,omitempty"`
	TeamIDs           []int64     `json:"teamIds,omitempty"`
}

// BuildEquipment converts an equipment tag list plus a priority tag list
// into flagged items. A tag is priority only if it is also present in
// the base list; priority tags without a base entry are dropped.
func BuildEquipment(tags, priority []string) []EquipmentItem {
	prioritySet := make(map[string]bool, len(priority))
	for _, p := range priority {
		prioritySet[p] = true
	}
	items := make([]EquipmentItem, 0, len(tags))
	for _, tag := range tags {
		items = append(items, EquipmentItem{Tag: tag, Priority: Flag(prioritySet[tag])})
	}
	return items
}
