package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sirdesai22/cf-tracker/internal/db"
	"github.com/sirdesai22/cf-tracker/internal/logger"
	"github.com/sirdesai22/cf-tracker/internal/models"
)

// StudentInput carries roster edits. Nil fields are left unchanged on update.
type StudentInput struct {
	Name                  *string `json:"name"`
	Email                 *string `json:"email"`
	Phone                 *string `json:"phone"`
	CodeforcesHandle      *string `json:"codeforcesHandle"`
	EmailRemindersEnabled *bool   `json:"emailRemindersEnabled"`
}

func (in StudentInput) apply(st *models.Student) {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		st.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		st.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.CodeforcesHandle != nil {
		st.CodeforcesHandle = strings.TrimSpace(*in.CodeforcesHandle)
	}
	if in.EmailRemindersEnabled != nil {
		st.EmailRemindersEnabled = *in.EmailRemindersEnabled
	}
}

// StudentService owns roster edits. Every write is paired with an outbox event in
// the same transaction.
type StudentService struct {
	store  *db.Store
	syncer *Syncer
	log    zerolog.Logger
}

func NewStudentService(store *db.Store, syncer *Syncer) *StudentService {
	return &StudentService{store: store, syncer: syncer, log: logger.Named("students")}
}

func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	return s.store.ListStudents(ctx)
}

func (s *StudentService) Get(ctx context.Context, id uuid.UUID) (models.Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *StudentService) Create(ctx context.Context, in StudentInput) (models.Student, error) {
	var st models.Student
	in.apply(&st)
	st.EmailRemindersEnabled = in.EmailRemindersEnabled == nil || *in.EmailRemindersEnabled
	if err := validateProfile(st); err != nil {
		return models.Student{}, err
	}

	err := s.store.Transaction(ctx, func(tx *db.Store) error {
		if err := tx.CreateStudent(ctx, &st); err != nil {
			return err
		}
		return AddOutboxEvent(tx.DB(), EntityStudent, st.ID, OpUpsert, st)
	})
	if err != nil {
		return models.Student{}, err
	}
	s.log.Info().Str("student_id", st.ID.String()).Str("handle", st.CodeforcesHandle).Msg("Student created")
	return st, nil
}

// Update applies in to the stored profile. When the handle changes to a new non-empty
// value a sync runs before returning. A failed sync keeps the profile edit and returns
// the saved student together with a *SyncFailedError.
func (s *StudentService) Update(ctx context.Context, id uuid.UUID, in StudentInput) (models.Student, error) {
	var (
		st            models.Student
		handleChanged bool
	)
	err := s.store.Transaction(ctx, func(tx *db.Store) error {
		cur, err := tx.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		oldHandle := cur.CodeforcesHandle
		in.apply(&cur)
		handleChanged = cur.CodeforcesHandle != "" && cur.CodeforcesHandle != oldHandle
		if err := validateProfile(cur); err != nil {
			return err
		}

		if err := tx.SaveProfile(ctx, &cur); err != nil {
			return err
		}
		st = cur
		return AddOutboxEvent(tx.DB(), EntityStudent, id, OpUpsert, cur)
	})
	if err != nil {
		return models.Student{}, err
	}

	if !handleChanged {
		return st, nil
	}
	s.log.Info().Str("student_id", id.String()).Str("handle", st.CodeforcesHandle).Msg("Handle changed, syncing")
	// The edit is committed; a caller hanging up must not abort its sync.
	synced, err := s.syncer.SyncOne(context.WithoutCancel(ctx), id, TriggerHandleChange)
	if err != nil {
		return st, err
	}
	return synced, nil
}

func (s *StudentService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx *db.Store) error {
		if err := tx.DeleteStudent(ctx, id); err != nil {
			return err
		}
		return AddOutboxEvent(tx.DB(), EntityStudent, id, OpDelete, nil)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("student_id", id.String()).Msg("Student deleted")
	return nil
}
