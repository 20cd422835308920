package services

import (
	"context"
	"fmt"

	"gamehall/config"
	"gamehall/domain/entities"
	"gamehall/domain/gameerr"
	"gamehall/domain/interfaces"
)

type userService struct {
	userRepo interfaces.UserRepository
}

// NewUserService creates the eligibility checker backed by the user store
func NewUserService(userRepo interfaces.UserRepository) interfaces.Eligibility {
	return &userService{userRepo: userRepo}
}

// CheckEligible provisions the user on first reference and rejects banned accounts
func (s *userService) CheckEligible(ctx context.Context, userID int64) (*entities.User, error) {
	if userID <= 0 {
		return nil, gameerr.NewValidation("invalid user id %d", userID)
	}

	cfg := config.Get()
	user, err := s.userRepo.GetOrCreate(ctx, userID, fmt.Sprintf("player_%d", userID), cfg.StartingBalance)
	if err != nil {
		return nil, gameerr.NewStore("get or create user", err)
	}
	if user.Banned {
		return nil, gameerr.NewEligibility("user %d is banned", userID)
	}
	return user, nil
}
