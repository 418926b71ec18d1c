package fivetools

import (
	"encoding/json"
	"fmt"
)

// ParseBestiary parses a 5etools bestiary JSON document.
//
// Precondition: data must be valid JSON.
// Postcondition: returns a non-nil Bestiary or a non-nil error.
func ParseBestiary(data []byte) (*Bestiary, error) {
	var b Bestiary
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing 5etools bestiary: %w", err)
	}
	return &b, nil
}
