package models

import "time"

// User represents a Telegram user of the lesson platform
type User struct {
	ID                     int64      `json:"telegramId" db:"telegram_id"` // Telegram User ID
	Username               string     `json:"username" db:"username"`
	FirstName              string     `json:"firstName" db:"first_name"`
	LastName               string     `json:"lastName" db:"last_name"`
	LanguageCode           string     `json:"languageCode" db:"language_code"`
	PremiumAccess          bool       `json:"premiumAccess" db:"premium_access"` // Granted by an admin
	Subscribed             bool       `json:"subscribed" db:"subscribed"`
	SubscriptionStartedAt  *time.Time `json:"subscriptionStartedAt,omitempty" db:"subscription_started_at"`
	SubscriptionVerifiedAt *time.Time `json:"subscriptionVerifiedAt,omitempty" db:"subscription_verified_at"`
	SubscriptionExpiresAt  *time.Time `json:"subscriptionExpiresAt,omitempty" db:"subscription_expires_at"`
	CreatedAt              time.Time  `json:"createdAt" db:"created_at"`
	LastActive             time.Time  `json:"lastActive" db:"last_active"`
}

// NewUser returns the row stored the first time an unknown Telegram id shows up
func NewUser(telegramID int64, now time.Time) User {
	return User{
		ID:         telegramID,
		CreatedAt:  now,
		LastActive: now,
	}
}

// SubscriptionActive reports whether the paid period is still running at t
func (u User) SubscriptionActive(t time.Time) bool {
	return u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.After(t)
}
