package entities

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// DefaultRoles is the allowed role set of the serving API.
var DefaultRoles = []Role{RoleUser, RoleModerator, RoleAdmin}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username" validate:"required,max=150,username"`
	Email     string    `gorm:"uniqueIndex;size:254;not null" json:"email" validate:"required,max=254,email"`
	Role      Role      `gorm:"size:16;not null;default:'user'" json:"role" validate:"required"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	FirstName string    `gorm:"size:150" json:"first_name,omitempty" validate:"max=150"`
	LastName  string    `gorm:"size:150" json:"last_name,omitempty" validate:"max=150"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IdentityKeys() []map[string]any {
	keys := make([]map[string]any, 0, 3)
	if u.ID != 0 {
		keys = append(keys, map[string]any{"id": u.ID})
	}
	return append(keys,
		map[string]any{"username": u.Username},
		map[string]any{"email": u.Email},
	)
}

func (u *User) SurrogateID() uint {
	return u.ID
}
