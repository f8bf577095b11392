// Package domain defines the persistence models for songs, venue users and
// song-request orders. These types are mapped with GORM and shared across the
// repository, service and transport layers.
package domain

import "time"

// Role is the privilege level of a venue user.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGuest || r == RoleAdmin
}

// Song is a catalog entry that patrons can request. Songs are loaded from the
// tabular catalog at startup and never modified by request traffic.
//
// Fields:
//   - ID: catalog identifier taken from the source file (not auto-generated).
//   - Title / Artist: display fields; both are searched case-insensitively.
//   - HasBacking: an instrumental backing track is available.
//   - Kind: optional free-form category from the catalog (genre, language…).
type Song struct {
	ID         int       `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	Title      string    `json:"title"       gorm:"type:varchar(255);not null;index:idx_songs_title"`
	Artist     string    `json:"artist"      gorm:"type:varchar(255);not null;default:'';index:idx_songs_artist"`
	HasBacking bool      `json:"has_backing" gorm:"not null;default:false"`
	Kind       string    `json:"kind,omitempty" gorm:"type:varchar(64);not null;default:''"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// TableName returns the database table name for Song.
func (Song) TableName() string { return "songs" }

// DisplayName renders the song as "Artist - Title", or just the title when
// the artist is unknown.
func (s Song) DisplayName() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

// User is a patron or staff member identified by their chat id.
//
// TableNumber is nil while the user is unregistered. Once set it only changes
// through an explicit reset, which clears it and demotes the user to guest.
type User struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ChatID      int64     `json:"chat_id"      gorm:"not null;uniqueIndex:ux_users_chat"`
	TableNumber *int      `json:"table_number" gorm:"check:table_number IS NULL OR table_number > 0"`
	Role        Role      `json:"role"         gorm:"type:varchar(16);not null;default:'guest';check:role IN ('guest','admin')"`
	Username    string    `json:"username,omitempty"     gorm:"type:varchar(64);not null;default:''"`
	DisplayName string    `json:"display_name,omitempty" gorm:"type:varchar(128);not null;default:''"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Registered reports whether the user has a table assigned.
func (u *User) Registered() bool { return u != nil && u.TableNumber != nil }

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Order is a song request placed by a user. The table number is copied from
// the user at creation time so staff can deliver the request even after the
// user resets their registration.
type Order struct {
	ID          uint64      `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID      string      `json:"user_id"      gorm:"type:char(36);not null;index:idx_orders_user,priority:1"`
	SongID      int         `json:"song_id"      gorm:"not null;index"`
	TableNumber int         `json:"table_number" gorm:"not null"`
	Status      OrderStatus `json:"status"       gorm:"type:varchar(16);not null;default:'pending';index:idx_orders_status;check:status IN ('pending','in_progress','completed','cancelled')"`
	CreatedAt   time.Time   `json:"created_at"   gorm:"index:idx_orders_user,priority:2"`
	UpdatedAt   time.Time   `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Song *Song `json:"song,omitempty" gorm:"foreignKey:SongID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }
