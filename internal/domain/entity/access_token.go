package entity

import "time"

// AccessToken records an issued bearer token by its JWT id.
type AccessToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	JTI       string     `gorm:"column:jti;size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	Reason    string     `gorm:"size:255;not null;default:''" json:"reason,omitempty"`
}

// Revocation reasons.
const (
	RevokeReasonLogout     = "logout"
	RevokeReasonNewSession = "new_session"
)

// NewAccessToken creates a token record for a freshly signed JWT.
func NewAccessToken(userID uint, jti string, expiresAt time.Time) *AccessToken {
	return &AccessToken{
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
}

// IsValid checks token validity.
func (t *AccessToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// Revoke marks token as revoked with reason.
func (t *AccessToken) Revoke(reason string, now time.Time) {
	t.RevokedAt = &now
	t.Reason = reason
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
