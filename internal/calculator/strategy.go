package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// Participant is one share holder as seen by a split strategy.
type Participant struct {
	ID    string
	Name  string
	Email string

	// Percentage is required by the percentage strategy.
	Percentage *decimal.Decimal

	// Amount is required by the custom strategy.
	Amount *decimal.Decimal
}

// ParticipantFromEntry builds a strategy participant from a breakdown entry.
func ParticipantFromEntry(e *models.BreakdownEntry) Participant {
	return Participant{
		ID:         e.CanonicalID(),
		Name:       e.Name,
		Email:      e.Email,
		Percentage: e.Percentage,
		Amount:     e.CustomAmount,
	}
}

// Matches reports whether ref names this participant by id, name or email.
func (p Participant) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	return ref == p.ID ||
		strings.EqualFold(ref, strings.TrimSpace(p.Name)) ||
		strings.EqualFold(ref, strings.TrimSpace(p.Email))
}

// Input is everything a strategy may need to divide a bill.
type Input struct {
	Total        decimal.Decimal
	Subtotal     decimal.Decimal
	Participants []Participant
	Items        []models.Item
}

// Strategy is the interface all split strategies implement.
type Strategy interface {
	// Type returns the split type this strategy handles.
	Type() models.SplitType

	// Validate checks the input without computing anything.
	Validate(in Input) error

	// Calculate returns one share per participant, in input order.
	Calculate(in Input) ([]decimal.Decimal, error)
}

// Factory creates split strategies by type.
type Factory struct {
	policy RemainderPolicy
}

// NewFactory returns a factory whose strategies round with policy.
func NewFactory(policy RemainderPolicy) *Factory {
	return &Factory{policy: policy}
}

// Create returns the strategy for splitType.
func (f *Factory) Create(splitType models.SplitType) (Strategy, error) {
	switch splitType {
	case models.SplitTypeEqual:
		return &EqualStrategy{Policy: f.policy}, nil
	case models.SplitTypePercentage:
		return &PercentageStrategy{Policy: f.policy}, nil
	case models.SplitTypeCustom:
		return &CustomStrategy{}, nil
	case models.SplitTypeItemBased:
		return &ItemBasedStrategy{}, nil
	default:
		return nil, invalid("unknown split type %q", splitType)
	}
}

func validateCommon(in Input) error {
	if len(in.Participants) == 0 {
		return invalid("at least one participant is required")
	}
	if in.Total.IsNegative() {
		return invalid("total amount cannot be negative")
	}
	return nil
}

// EqualStrategy divides the total evenly.
type EqualStrategy struct {
	Policy RemainderPolicy
}

func (s *EqualStrategy) Type() models.SplitType { return models.SplitTypeEqual }

func (s *EqualStrategy) Validate(in Input) error { return validateCommon(in) }

func (s *EqualStrategy) Calculate(in Input) ([]decimal.Decimal, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	return EqualShares(in.Total, len(in.Participants), s.Policy)
}

// PercentageStrategy divides the total by per-participant percentages that
// sum to 100.
type PercentageStrategy struct {
	Policy RemainderPolicy
}

func (s *PercentageStrategy) Type() models.SplitType { return models.SplitTypePercentage }

func (s *PercentageStrategy) Validate(in Input) error {
	if err := validateCommon(in); err != nil {
		return err
	}
	sum := decimal.Zero
	for _, p := range in.Participants {
		if p.Percentage == nil {
			return invalid("percentage required for %q", p.Name)
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return invalid("percentage for %q must be between 0 and 100", p.Name)
		}
		sum = sum.Add(*p.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(Cent) {
		return invalid("percentages must sum to 100, got %s", sum.String())
	}
	return nil
}

func (s *PercentageStrategy) Calculate(in Input) ([]decimal.Decimal, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	shares := make([]decimal.Decimal, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = Round2(in.Total.Mul(*p.Percentage).Div(hundred))
	}
	if s.Policy == RemainderLastAbsorbs {
		absorbRemainder(shares, in.Total)
	}
	return shares, nil
}

// CustomStrategy uses exact per-participant amounts that sum to the total.
type CustomStrategy struct{}

func (s *CustomStrategy) Type() models.SplitType { return models.SplitTypeCustom }

func (s *CustomStrategy) Validate(in Input) error {
	if err := validateCommon(in); err != nil {
		return err
	}
	sum := decimal.Zero
	for _, p := range in.Participants {
		if p.Amount == nil {
			return invalid("custom amount required for %q", p.Name)
		}
		if p.Amount.IsNegative() {
			return invalid("custom amount for %q cannot be negative", p.Name)
		}
		sum = sum.Add(*p.Amount)
	}
	if sum.Sub(in.Total).Abs().GreaterThanOrEqual(Cent) {
		return invalid("custom amounts must sum to %s, got %s", in.Total.StringFixed(2), sum.StringFixed(2))
	}
	return nil
}

func (s *CustomStrategy) Calculate(in Input) ([]decimal.Decimal, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	shares := make([]decimal.Decimal, len(in.Participants))
	for i, p := range in.Participants {
		shares[i] = Round2(*p.Amount)
	}
	return shares, nil
}

// ItemBasedStrategy charges each participant for their items plus a
// proportional part of tax and tip.
type ItemBasedStrategy struct{}

func (s *ItemBasedStrategy) Type() models.SplitType { return models.SplitTypeItemBased }

func (s *ItemBasedStrategy) Validate(in Input) error {
	if err := validateCommon(in); err != nil {
		return err
	}
	if !in.Subtotal.IsPositive() {
		return invalid("subtotal must be positive")
	}
	if in.Subtotal.GreaterThan(in.Total) {
		return invalid("subtotal cannot exceed total")
	}
	for _, item := range in.Items {
		if item.Amount.IsNegative() {
			return invalid("item %q has a negative amount", item.Description)
		}
	}
	return nil
}

func (s *ItemBasedStrategy) Calculate(in Input) ([]decimal.Decimal, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	splits, err := CalculateSplit(in.Items, in.Total, in.Subtotal, in.Participants)
	if err != nil {
		return nil, err
	}
	shares := make([]decimal.Decimal, len(splits))
	for i, ps := range splits {
		shares[i] = Round2(ps.Total)
	}
	return shares, nil
}

// Shares runs the strategy for splitType over in.
func (f *Factory) Shares(splitType models.SplitType, in Input) ([]decimal.Decimal, error) {
	s, err := f.Create(splitType)
	if err != nil {
		return nil, err
	}
	shares, err := s.Calculate(in)
	if err != nil {
		return nil, fmt.Errorf("%s split: %w", splitType, err)
	}
	return shares, nil
}
