package domain

import "time"

// User is a person known to the shop.
type User struct {
	ID          string
	Name        string
	Email       string
	Role        string
	Avatar      string
	CitizenID   string
	PhoneNumber string
	IsDeleted   bool
	Audit
}

// Account holds the login credentials paired one-to-one with a User.
type Account struct {
	ID           string
	UserID       string
	Username     string
	PasswordHash string
	IsActived    bool
	IsDeleted    bool
	Audit
}

// AccountView joins a user with its account for list and detail screens.
type AccountView struct {
	UserID      string
	Username    string
	Avatar      string
	Name        string
	Email       string
	Role        string
	CitizenID   string
	PhoneNumber string
	IsActived   bool
	CreatedAt   time.Time
	CreatedBy   string
}
