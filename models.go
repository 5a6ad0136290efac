package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the lifecycle state of an identity artifact
type Status = string

const (
	// StatusCreated is the initial state for users and email records
	StatusCreated Status = "created"
	// StatusActive marks a verified or provisionally activated artifact
	StatusActive Status = "active"
	// StatusDisabled marks an artifact that was explicitly turned off
	StatusDisabled Status = "disabled"
)

// statusTransitions is the allowed lifecycle graph. Records are never
// physically deleted, only moved between states.
var statusTransitions = map[Status]map[Status]struct{}{
	StatusCreated: {
		StatusActive:   {},
		StatusDisabled: {},
	},
	StatusActive: {
		StatusDisabled: {},
	},
	StatusDisabled: {
		StatusActive: {},
	},
}

// CanTransition reports whether a status change is allowed by the
// lifecycle graph. Same-state transitions are treated as no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	targets, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// User is the identity root. Its primary login email is mirrored as an
// EmailRecord so secondary addresses share one verification path.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Verified      bool       `bun:"is_verified" json:"is_verified"`
	Status        Status     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus sets the default status for new records
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = StatusCreated
	}
}

// EmailRecord is an address owned by a user, primary or additional.
// The email column is unique across the whole collection: one address
// can never belong to two users.
type EmailRecord struct {
	bun.BaseModel `bun:"table:user_emails,alias:uem"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Verified      bool       `bun:"is_verified" json:"is_verified"`
	Status        Status     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus sets the default status for new records
func (e *EmailRecord) EnsureStatus() {
	if e.Status == "" {
		e.Status = StatusCreated
	}
}

// DeviceRecord binds a mobile advertising identifier to a user. The
// all-zero identifier is a reserved "absent" sentinel and is never
// persisted.
type DeviceRecord struct {
	bun.BaseModel `bun:"table:user_devices,alias:udv"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	AdvertisingID string     `bun:"advertising_id,notnull" json:"advertising_id,omitempty"`
	Status        Status     `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus sets the default status for new records
func (d *DeviceRecord) EnsureStatus() {
	if d.Status == "" {
		d.Status = StatusActive
	}
}

// Verification is an outstanding one-time code. At most one entry exists
// per email: issuing a new code replaces the row wholesale, implicitly
// invalidating the previous code.
type Verification struct {
	bun.BaseModel  `bun:"table:verification_codes,alias:vrf"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	HashedCode     string     `bun:"hashed_code,notnull" json:"-"`
	ExpirationTime time.Time  `bun:"expiration_time,notnull" json:"expiration_time,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the entry is past its expiration time.
func (v *Verification) Expired(now time.Time) bool {
	return now.After(v.ExpirationTime)
}

// UserData is the read-only aggregate projection of a user's email and
// device records.
type UserData struct {
	Emails  []*EmailRecord  `json:"emails"`
	Devices []*DeviceRecord `json:"devices"`
}

// NormalizeEmail lowercases and trims an address so lookups and the
// unique index agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
