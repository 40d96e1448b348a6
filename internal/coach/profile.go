package coach

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile describes the person being coached. It is immutable per
// request and supplied by the caller; Validate rejects malformed
// profiles before any template binding happens.
type Profile struct {
	Name    string  `json:"name"`
	Age     int     `json:"age"`
	Sex     string  `json:"sex"`
	Weight  float64 `json:"weight"` // kilograms
	Height  float64 `json:"height"` // centimeters
	Goals   string  `json:"goals"`
	Country string  `json:"country"`
}

// ProfileError reports one or more unusable profile fields.
type ProfileError struct {
	Problems []string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s", strings.Join(e.Problems, "; "))
}

// Validate checks that all fields carry usable values.
func (p Profile) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.Age <= 0 || p.Age > 150 {
		problems = append(problems, "age must be between 1 and 150")
	}
	if strings.TrimSpace(p.Sex) == "" {
		problems = append(problems, "sex is required")
	}
	if p.Weight <= 0 {
		problems = append(problems, "weight must be positive")
	}
	if p.Height <= 0 {
		problems = append(problems, "height must be positive")
	}
	if strings.TrimSpace(p.Goals) == "" {
		problems = append(problems, "goals are required")
	}
	if len(problems) > 0 {
		return &ProfileError{Problems: problems}
	}
	return nil
}

// Vars returns the full template variable binding for this profile.
func (p Profile) Vars() map[string]string {
	return map[string]string{
		"name":    p.Name,
		"age":     strconv.Itoa(p.Age),
		"sex":     p.Sex,
		"weight":  strconv.FormatFloat(p.Weight, 'f', -1, 64),
		"height":  strconv.FormatFloat(p.Height, 'f', -1, 64),
		"goals":   p.Goals,
		"country": p.Country,
	}
}
