package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Balance      int64     `json:"balance"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}
