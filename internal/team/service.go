package team

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemberShare is one active member's revenue-share weight.
type MemberShare struct {
	MemberID   uuid.UUID
	Percentage float64
}

// Service is the directory collaborator the commission ledger consumes.
type Service interface {
	WithTx(tx *gorm.DB) Service
	ListActiveMembersWithPercentage(ctx context.Context) ([]MemberShare, error)
}

type service struct {
	repo Repository
}

// NewService wires a team service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("team repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) ListActiveMembersWithPercentage(ctx context.Context) ([]MemberShare, error) {
	members, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	shares := make([]MemberShare, 0, len(members))
	for _, member := range members {
		if member.Percentage <= 0 {
			continue
		}
		shares = append(shares, MemberShare{
			MemberID:   member.ID,
			Percentage: member.Percentage,
		})
	}
	return shares, nil
}
