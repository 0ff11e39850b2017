package repository

import (
	"context"
	"fmt"

	"github.com/amezhanin/skinstore/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type demoAccount struct {
	email    string
	password string
	balance  int64
}

// Fixed demo accounts, inserted once when the users table is empty.
var demoAccounts = []demoAccount{
	{"alice@skinstore.local", "alice-demo", 1000},
	{"bob@skinstore.local", "bob-demo", 2500},
	{"carol@skinstore.local", "carol-demo", 500},
}

func SeedDemoUsers(ctx context.Context, users UserRepository, bcryptCost int) error {
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, acc := range demoAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash demo password: %w", err)
		}
		user := &model.User{
			Email:        acc.email,
			PasswordHash: string(hash),
			Balance:      acc.balance,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", acc.email, err)
		}
	}

	return nil
}
