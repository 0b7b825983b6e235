package models

import "time"

// Category is a user-defined grouping of channels. The id is generated
// once and stays stable for the category's lifetime; Order is a dense,
// zero-based sort rank rewritten to match list position on every save.
type Category struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Order     int       `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a category with a freshly generated stable id
func NewCategory(name string, order int) Category {
	return Category{
		ID:    NewIdentity(),
		Name:  name,
		Order: order,
	}
}

// NormalizeCategoryOrder rewrites Order values to match list position,
// keeping them dense and zero-based.
func NormalizeCategoryOrder(categories []Category) {
	for i := range categories {
		categories[i].Order = i
	}
}

// CategoryMembership is one row of the durable join table mapping a
// category to a member channel's stable key. It is what makes category
// assignment survive re-fetches even though surrogate identities
// change every time.
type CategoryMembership struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CategoryID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_membership" json:"category_id"`
	StableKey  string `gorm:"type:varchar(512);not null;uniqueIndex:idx_membership" json:"stable_key"`
}

// TableName specifies the table name for CategoryMembership
func (CategoryMembership) TableName() string {
	return "category_memberships"
}

// MembershipIndex maps category ids to the stable keys of their
// members, the in-memory shape of the membership join table.
type MembershipIndex map[string][]string

// ByStableKey inverts the index into stable key -> category ids
func (m MembershipIndex) ByStableKey() map[string][]string {
	inverted := make(map[string][]string)
	for categoryID, keys := range m {
		for _, key := range keys {
			inverted[key] = append(inverted[key], categoryID)
		}
	}
	return inverted
}
