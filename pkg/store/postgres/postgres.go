// Package postgres implements [github.com/inkpad/inkpad/pkg/store.Store]
// on PostgreSQL using GORM.
//
// Schema comes from the gorm tags on the [github.com/inkpad/inkpad/pkg/models]
// structs and is applied with AutoMigrate, which only adds missing tables,
// columns, and indexes and never drops data. Partial note updates are issued
// as column maps so untouched fields are not rewritten, and owner scoping on
// delete is expressed in the WHERE clause rather than checked first, so the
// "not your note" case is a zero-row delete instead of a race.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/inkpad/inkpad/pkg/models"
	"github.com/inkpad/inkpad/pkg/store"
)

// Store implements store.Store on PostgreSQL with GORM.
type Store struct {
	db *gorm.DB
}

// New connects to PostgreSQL with the given DSN.
func New(dsn string) (store.Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the users and notes tables. Safe to run
// repeatedly; AutoMigrate only adds missing schema elements.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Note{},
	)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// Note operations

func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	return s.db.WithContext(ctx).Create(note).Error
}

func (s *Store) GetNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	var note models.Note
	err := s.db.WithContext(ctx).First(&note, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Store) ListNotes(ctx context.Context, owner models.UserID) ([]*models.Note, error) {
	notes := []*models.Note{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", owner).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (s *Store) UpdateNoteFields(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error) {
	updates := map[string]any{}
	if change.Title != nil {
		updates["title"] = *change.Title
	}
	if change.Content != nil {
		updates["content"] = *change.Content
	}
	return s.applyNoteUpdates(ctx, id, updates)
}

func (s *Store) SetNoteSharing(ctx context.Context, id models.NoteID, publicID *string) (*models.Note, error) {
	updates := map[string]any{
		"is_public": publicID != nil,
		"public_id": publicID,
	}
	return s.applyNoteUpdates(ctx, id, updates)
}

// applyNoteUpdates issues a column-map UPDATE and reads the row back. An
// empty map skips the UPDATE but still bumps updated_at, matching the
// original behavior where every PUT touched the row.
func (s *Store) applyNoteUpdates(ctx context.Context, id models.NoteID, updates map[string]any) (*models.Note, error) {
	updates["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Note{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetNote(ctx, id)
}

func (s *Store) DeleteNote(ctx context.Context, id models.NoteID, owner models.UserID) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, owner).
		Delete(&models.Note{}).Error
}

func (s *Store) GetPublicNote(ctx context.Context, publicID string) (*models.Note, error) {
	var note models.Note
	err := s.db.WithContext(ctx).
		Table("notes AS n").
		Select("n.*, u.full_name AS author_name").
		Joins("JOIN users u ON u.id = n.user_id").
		Where("n.public_id = ? AND n.is_public = ?", publicID, true).
		Take(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Store) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := s.db.WithContext(ctx).
		Table("users AS u").
		Select("u.id, u.full_name, u.avatar_url, COUNT(n.id) AS note_count").
		Joins("LEFT JOIN notes n ON n.user_id = u.id").
		Group("u.id, u.full_name, u.avatar_url").
		Order("note_count DESC, u.full_name ASC").
		Scan(&entries).Error
	return entries, err
}
