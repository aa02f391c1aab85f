package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirdesai22/cf-tracker/internal/models"
	"gorm.io/gorm"
)

var ErrStudentNotFound = errors.New("student not found")

const insertBatchSize = 500

// Store is the roster and history repository. Inside Transaction every call
// runs on the same database transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, e.g. for outbox writes inside a transaction.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// ---------------- ROSTER ----------------

func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&students).Error
	return students, err
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (models.Student, error) {
	var st models.Student
	err := s.db.WithContext(ctx).First(&st, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	return st, err
}

func (s *Store) CreateStudent(ctx context.Context, st *models.Student) error {
	return s.db.WithContext(ctx).Create(st).Error
}

// SaveProfile writes the roster-owned fields. Rating summary fields are left alone.
func (s *Store) SaveProfile(ctx context.Context, st *models.Student) error {
	res := s.db.WithContext(ctx).Model(&models.Student{ID: st.ID}).
		Select("name", "email", "phone", "codeforces_handle", "email_reminders_enabled", "reminders_sent", "updated_at").
		Updates(st)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, st.ID)
	}
	return nil
}

// DeleteStudent removes the student together with its stored history.
func (s *Store) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("student_id = ?", id).Delete(&models.ContestResult{}).Error; err != nil {
		return err
	}
	if err := db.Where("student_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Student{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	return nil
}

// UpdateRatingSummary writes the three derived fields and nothing else.
func (s *Store) UpdateRatingSummary(ctx context.Context, id uuid.UUID, sum models.RatingSummary) error {
	res := s.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Updates(map[string]any{
		"current_rating": sum.CurrentRating,
		"max_rating":     sum.MaxRating,
		"last_synced_at": sum.LastSyncedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	return nil
}

// ---------------- HISTORY ----------------

// ReplaceContests swaps the student's whole contest set. Call it inside Transaction
// so readers never observe the gap between delete and insert.
func (s *Store) ReplaceContests(ctx context.Context, id uuid.UUID, contests []models.ContestResult) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("student_id = ?", id).Delete(&models.ContestResult{}).Error; err != nil {
		return fmt.Errorf("delete contests: %w", err)
	}
	if len(contests) == 0 {
		return nil
	}
	if err := db.CreateInBatches(contests, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert contests: %w", err)
	}
	return nil
}

// ReplaceSubmissions swaps the student's whole accepted-submission set.
func (s *Store) ReplaceSubmissions(ctx context.Context, id uuid.UUID, subs []models.Submission) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("student_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}
	if err := db.CreateInBatches(subs, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert submissions: %w", err)
	}
	return nil
}

// ListContests returns the stored contest results oldest first.
func (s *Store) ListContests(ctx context.Context, id uuid.UUID) ([]models.ContestResult, error) {
	var out []models.ContestResult
	err := s.db.WithContext(ctx).Where("student_id = ?", id).Order("contest_date asc, id asc").Find(&out).Error
	return out, err
}

// ListSubmissions returns the stored accepted submissions oldest first.
func (s *Store) ListSubmissions(ctx context.Context, id uuid.UUID) ([]models.Submission, error) {
	var out []models.Submission
	err := s.db.WithContext(ctx).Where("student_id = ?", id).Order("creation_time asc, id asc").Find(&out).Error
	return out, err
}

// ---------------- SYNC FAILURES ----------------

func (s *Store) RecordSyncFailure(ctx context.Context, f *models.SyncFailure) error {
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *Store) ListSyncFailures(ctx context.Context, limit int) ([]models.SyncFailure, error) {
	var out []models.SyncFailure
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

// ---------------- OUTBOX / DLQ ----------------

func (s *Store) ListOutbox(ctx context.Context, limit int) ([]models.Outbox, error) {
	var out []models.Outbox
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) ListDLQ(ctx context.Context, limit int) ([]models.DLQ, error) {
	var out []models.DLQ
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}
