package models

import "time"

// TelegramUser is a bot user. New users start unapproved and must be
// approved by an admin or moderator before they receive signals.
type TelegramUser struct {
	ID           int64     `json:"id" db:"id"`
	TelegramID   int64     `json:"telegram_id" db:"telegram_id"`
	Username     string    `json:"username" db:"username"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LanguageCode string    `json:"language_code" db:"language_code"`
	IsApproved   bool      `json:"is_approved" db:"is_approved"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsModerator  bool      `json:"is_moderator" db:"is_moderator"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CanModerate reports whether the user may act on pending registrations.
func (u *TelegramUser) CanModerate() bool {
	return u.IsAdmin || u.IsModerator
}

// AnalysisRequest is the externally visible input contract of the core:
// a symbol, the timeframes to evaluate, and the display language.
type AnalysisRequest struct {
	Symbol     string `json:"symbol"`
	Timeframes []int  `json:"timeframes"`
	Language   string `json:"language"`
}
