package models

import (
	"github.com/uptrace/bun"
)

// MenuItem is read-only from this service; menu management is handled
// elsewhere.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID              string `bun:"id,pk" json:"id"`
	Name            string `bun:"name,notnull" json:"name"`
	Description     string `bun:"description,nullzero" json:"description,omitempty"`
	Price           int64  `bun:"price,notnull" json:"price"`
	ItemType        string `bun:"item_type,notnull" json:"type"`
	Category        string `bun:"category,notnull" json:"category"`
	Section         string `bun:"section,notnull" json:"section"`
	IsAvailable     bool   `bun:"is_available,notnull,default:true" json:"isAvailable"`
	PreparationTime int    `bun:"preparation_time,notnull,default:15" json:"preparationTime"`
}

// MenuSection groups items the way the frontend renders them.
type MenuSection struct {
	Title string      `json:"title"`
	Items []*MenuItem `json:"items"`
}
