package entity

import "time"

// OTPChallenge is a one-time activation code issued to a pending user.
type OTPChallenge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Code       string    `gorm:"size:16;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (OTPChallenge) TableName() string {
	return "otp_challenges"
}

// NewOTPChallenge creates an unverified challenge expiring after ttl.
func NewOTPChallenge(userID uint, code string, now time.Time, ttl time.Duration) *OTPChallenge {
	return &OTPChallenge{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(ttl),
	}
}

func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsActionable reports whether the code can still be redeemed.
func (c *OTPChallenge) IsActionable(now time.Time) bool {
	return !c.IsVerified && !c.IsExpired(now)
}
