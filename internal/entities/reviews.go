package entities

import "time"

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TitleID   uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author" json:"title_id" validate:"required"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author;index" json:"author_id" validate:"required"`
	Text      string    `gorm:"type:text;not null" json:"text" validate:"required"`
	Score     int       `gorm:"not null;check:score >= 1 AND score <= 10" json:"score" validate:"score"`
	PubDate   time.Time `gorm:"index;not null" json:"pub_date"`
	Title     *Title    `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// IdentityKeys includes the (title, author) pair: one review per author and title.
func (r *Review) IdentityKeys() []map[string]any {
	keys := make([]map[string]any, 0, 2)
	if r.ID != 0 {
		keys = append(keys, map[string]any{"id": r.ID})
	}
	return append(keys, map[string]any{"title_id": r.TitleID, "author_id": r.AuthorID})
}

func (r *Review) SurrogateID() uint {
	return r.ID
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"index;not null" json:"review_id" validate:"required"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id" validate:"required"`
	Text      string    `gorm:"type:text;not null" json:"text" validate:"required"`
	PubDate   time.Time `gorm:"index;not null" json:"pub_date"`
	Review    *Review   `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"-" validate:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) IdentityKeys() []map[string]any {
	keys := make([]map[string]any, 0, 2)
	if c.ID != 0 {
		keys = append(keys, map[string]any{"id": c.ID})
	}
	return append(keys, map[string]any{"review_id": c.ReviewID, "author_id": c.AuthorID, "text": c.Text})
}

func (c *Comment) SurrogateID() uint {
	return c.ID
}
