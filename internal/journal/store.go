package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store manages entry persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a journal store using an existing database connection.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS journal_entries (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			weight REAL NOT NULL,
			measurements TEXT NOT NULL,
			mood TEXT,
			energy_level TEXT,
			text_notes TEXT,
			voice_notes TEXT,
			photos TEXT NOT NULL,
			workout_intensity TEXT,
			workout_duration INTEGER,
			goals_progress TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_journal_date ON journal_entries(date DESC);
	`)
	return err
}

// Create inserts a new entry, assigning it an ID.
func (s *Store) Create(e *Entry) (*Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	id, _ := uuid.NewV7()
	e.ID = id

	measurements, err := json.Marshal(orEmptyMap(e.Measurements))
	if err != nil {
		return nil, fmt.Errorf("marshal measurements: %w", err)
	}
	photos, err := json.Marshal(orEmptySlice(e.Photos))
	if err != nil {
		return nil, fmt.Errorf("marshal photos: %w", err)
	}
	goals, err := json.Marshal(orEmptyAnyMap(e.GoalsProgress))
	if err != nil {
		return nil, fmt.Errorf("marshal goals progress: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO journal_entries (id, date, weight, measurements, mood, energy_level,
			text_notes, voice_notes, photos, workout_intensity, workout_duration, goals_progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), e.Date.UTC().Format(time.RFC3339), e.Weight, string(measurements),
		e.Mood, e.EnergyLevel, e.TextNotes, e.VoiceNotes, string(photos),
		e.WorkoutIntensity, e.WorkoutDurationMin, string(goals))
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	return e, nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(id uuid.UUID) (*Entry, error) {
	return scanEntry(s.db.QueryRow(`
		SELECT id, date, weight, measurements, mood, energy_level,
			text_notes, voice_notes, photos, workout_intensity, workout_duration, goals_progress
		FROM journal_entries WHERE id = ?
	`, id.String()))
}

// List retrieves entries newest first, up to limit. A limit of zero
// means no limit.
func (s *Store) List(limit int) ([]*Entry, error) {
	query := `
		SELECT id, date, weight, measurements, mood, energy_level,
			text_notes, voice_notes, photos, workout_intensity, workout_duration, goals_progress
		FROM journal_entries ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry.
func (s *Store) Delete(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM journal_entries WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("entry not found: %s", id)
	}
	return nil
}

// Stats returns journal statistics.
func (s *Store) Stats() map[string]any {
	var total int
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM journal_entries`).Scan(&total)

	var latest sql.NullString
	_ = s.db.QueryRow(`SELECT MAX(date) FROM journal_entries`).Scan(&latest)

	stats := map[string]any{"total": total}
	if latest.Valid {
		stats["latest"] = latest.String
	}
	return stats
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var idStr, dateStr, measurementsStr, photosStr, goalsStr string
	var mood, energy, textNotes, voiceNotes, intensity sql.NullString
	var duration sql.NullInt64

	err := row.Scan(&idStr, &dateStr, &e.Weight, &measurementsStr, &mood, &energy,
		&textNotes, &voiceNotes, &photosStr, &intensity, &duration, &goalsStr)
	if err != nil {
		return nil, err
	}

	e.ID, _ = uuid.Parse(idStr)
	e.Date, _ = time.Parse(time.RFC3339, dateStr)
	e.Mood = mood.String
	e.EnergyLevel = energy.String
	e.TextNotes = textNotes.String
	e.VoiceNotes = voiceNotes.String
	e.WorkoutIntensity = intensity.String
	e.WorkoutDurationMin = int(duration.Int64)

	if err := json.Unmarshal([]byte(measurementsStr), &e.Measurements); err != nil {
		return nil, fmt.Errorf("unmarshal measurements: %w", err)
	}
	if err := json.Unmarshal([]byte(photosStr), &e.Photos); err != nil {
		return nil, fmt.Errorf("unmarshal photos: %w", err)
	}
	if err := json.Unmarshal([]byte(goalsStr), &e.GoalsProgress); err != nil {
		return nil, fmt.Errorf("unmarshal goals progress: %w", err)
	}

	return &e, nil
}

func orEmptyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func orEmptyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
