// Package journal stores dated progress entries: weight, body
// measurements, mood, notes, and transcribed voice notes.
package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one progress journal record.
type Entry struct {
	ID                 uuid.UUID          `json:"id"`
	Date               time.Time          `json:"date"`
	Weight             float64            `json:"weight"`                 // kg
	Measurements       map[string]float64 `json:"measurements,omitempty"` // body part -> cm
	Mood               string             `json:"mood,omitempty"`
	EnergyLevel        string             `json:"energy_level,omitempty"`
	TextNotes          string             `json:"text_notes,omitempty"`
	VoiceNotes         string             `json:"voice_notes,omitempty"` // transcribed text
	Photos             []string           `json:"photos,omitempty"`      // stored file paths
	WorkoutIntensity   string             `json:"workout_intensity,omitempty"`
	WorkoutDurationMin int                `json:"workout_duration,omitempty"`
	GoalsProgress      map[string]any     `json:"goals_progress,omitempty"` // goal -> percent
}

// Validate checks the fields a caller must always supply.
func (e *Entry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("entry date is required")
	}
	if e.Weight <= 0 {
		return fmt.Errorf("entry weight must be positive, got %v", e.Weight)
	}
	return nil
}
