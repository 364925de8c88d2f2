package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/careflow/pkg/models"
	"github.com/dukex/careflow/pkg/persistence"
)

// Skill scores of the auto-assignment heuristic.
const (
	ScoreExactSkill   = 3
	ScorePartialSkill = 2
	ScoreGeneralSkill = 1
)

const generalSkill = "general"

// AutoAssigner picks the available technician whose skills best fit a ticket category.
type AutoAssigner struct {
	technicians persistence.TechnicianRepository
}

func NewAutoAssigner(technicians persistence.TechnicianRepository) *AutoAssigner {
	return &AutoAssigner{technicians: technicians}
}

// Score rates how well skills fit category: an exact skill scores 3, a skill contained in the
// category (or containing it) scores 2, a "general" skill scores 1, anything else 0.
func Score(category string, skills []string) int {
	if slices.Contains(skills, category) {
		return ScoreExactSkill
	}

	for _, skill := range skills {
		if strings.Contains(category, skill) || strings.Contains(skill, category) {
			return ScorePartialSkill
		}
	}

	if slices.Contains(skills, generalSkill) {
		return ScoreGeneralSkill
	}

	return 0
}

// Select returns the best scoring available technician, the first one on ties,
// or nil when nobody scores above zero.
func (a *AutoAssigner) Select(ctx context.Context, ticket *models.Ticket) (*models.Technician, error) {
	technicians, err := a.technicians.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available technicians: %w", err)
	}

	var (
		best      *models.Technician
		bestScore int
	)

	for _, technician := range technicians {
		if technician.Availability != models.AvailabilityAvailable {
			continue
		}

		score := Score(ticket.Category, technician.Skills)
		if score > bestScore {
			best = technician
			bestScore = score
		}
	}

	return best, nil
}
