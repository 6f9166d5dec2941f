package entities

import "time"

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name" validate:"required,max=256"`
	Slug      string    `gorm:"uniqueIndex;size:50;not null" json:"slug" validate:"required,max=50,slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) IdentityKeys() []map[string]any {
	return slugNameKeys(c.ID, c.Slug, c.Name)
}

func (c *Category) SurrogateID() uint {
	return c.ID
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name" validate:"required,max=256"`
	Slug      string    `gorm:"uniqueIndex;size:50;not null" json:"slug" validate:"required,max=50,slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (Genre) TableName() string {
	return "genres"
}

func (g *Genre) IdentityKeys() []map[string]any {
	return slugNameKeys(g.ID, g.Slug, g.Name)
}

func (g *Genre) SurrogateID() uint {
	return g.ID
}

func slugNameKeys(id uint, slug, name string) []map[string]any {
	keys := make([]map[string]any, 0, 3)
	if id != 0 {
		keys = append(keys, map[string]any{"id": id})
	}
	return append(keys,
		map[string]any{"slug": slug},
		map[string]any{"name": name},
	)
}

type Title struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index;size:256;not null" json:"name" validate:"required,max=256"`
	Year        int       `gorm:"index;not null" json:"year" validate:"gte=0,notfuture"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;" json:"category,omitempty" validate:"-"`
	Genres      []Genre   `gorm:"many2many:title_genres;" json:"genres,omitempty" validate:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Title) TableName() string {
	return "titles"
}

// IdentityKeys falls back to (name, year) when the source row has no id.
// The category is left out: it is optional and may resolve differently
// between runs, which must not turn a rerun into a duplicate.
func (t *Title) IdentityKeys() []map[string]any {
	keys := make([]map[string]any, 0, 2)
	if t.ID != 0 {
		keys = append(keys, map[string]any{"id": t.ID})
	}
	return append(keys, map[string]any{"name": t.Name, "year": t.Year})
}

func (t *Title) SurrogateID() uint {
	return t.ID
}

// TitleGenre is the join row of the title <-> genre many-to-many relation.
type TitleGenre struct {
	TitleID   uint      `gorm:"primaryKey" json:"title_id" validate:"required"`
	GenreID   uint      `gorm:"primaryKey" json:"genre_id" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

func (TitleGenre) TableName() string {
	return "title_genres"
}

func (l *TitleGenre) IdentityKeys() []map[string]any {
	return []map[string]any{{"title_id": l.TitleID, "genre_id": l.GenreID}}
}
