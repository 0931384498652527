package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mmynk/splitsettle/internal/models"
)

// EncodeBreakdown serializes a breakdown for a JSON column.
func EncodeBreakdown(breakdown []models.BreakdownEntry) (string, error) {
	if breakdown == nil {
		breakdown = []models.BreakdownEntry{}
	}
	b, err := json.Marshal(breakdown)
	if err != nil {
		return "", fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return string(b), nil
}

// DecodeBreakdown parses a breakdown JSON column.
func DecodeBreakdown(raw string) ([]models.BreakdownEntry, error) {
	var breakdown []models.BreakdownEntry
	if raw == "" {
		return breakdown, nil
	}
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	return breakdown, nil
}

// EncodeItems serializes line items for a JSON column.
func EncodeItems(items []models.Item) (string, error) {
	if items == nil {
		items = []models.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(b), nil
}

// DecodeItems parses a line item JSON column. An empty list decodes to nil.
func DecodeItems(raw string) ([]models.Item, error) {
	var items []models.Item
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// EncodeAllocations serializes payment allocations for a JSON column.
func EncodeAllocations(allocations []models.Allocation) (string, error) {
	if allocations == nil {
		allocations = []models.Allocation{}
	}
	b, err := json.Marshal(allocations)
	if err != nil {
		return "", fmt.Errorf("failed to encode allocations: %w", err)
	}
	return string(b), nil
}

// DecodeAllocations parses an allocations JSON column.
func DecodeAllocations(raw string) ([]models.Allocation, error) {
	var allocations []models.Allocation
	if err := json.Unmarshal([]byte(raw), &allocations); err != nil {
		return nil, fmt.Errorf("failed to decode allocations: %w", err)
	}
	return allocations, nil
}
