package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pulsetrack/pulsetrack/internal/models"
)

// GormStore implements Store on a GORM database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a connected database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateCheck(ctx context.Context, c *models.Check) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) CheckByCode(ctx context.Context, code string) (*models.Check, error) {
	var c models.Check
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) ChecksForUser(ctx context.Context, userID int) ([]models.Check, error) {
	var out []models.Check
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) ChecksInStatus(ctx context.Context, statuses []string) ([]models.Check, error) {
	var out []models.Check
	err := s.db.WithContext(ctx).Where("status IN ?", statuses).Find(&out).Error
	return out, err
}

func (s *GormStore) UpdateCheckStatus(ctx context.Context, checkID int, status string) error {
	return s.db.WithContext(ctx).Model(&models.Check{}).
		Where("id = ?", checkID).
		Update("status", status).Error
}

func (s *GormStore) RecordPing(ctx context.Context, c *models.Check, p *models.Ping) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Check{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{
				"n_pings":   gorm.Expr("n_pings + 1"),
				"last_ping": c.LastPing,
				"status":    c.Status,
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

func (s *GormStore) PingsForCheck(ctx context.Context, checkID, limit int) ([]models.Ping, error) {
	var out []models.Ping
	err := s.db.WithContext(ctx).
		Where("check_id = ?", checkID).
		Order("created DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User, p *models.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		p.UserID = u.ID
		return tx.Create(p).Error
	})
}

func (s *GormStore) UserByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) SaveUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

func (s *GormStore) ProfileByAPIKey(ctx context.Context, key string) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("api_key = ?", key).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) ProfileByUserID(ctx context.Context, userID int) (*models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *GormStore) ProfilesDueReports(ctx context.Context, now time.Time) ([]models.Profile, error) {
	var out []models.Profile
	err := s.db.WithContext(ctx).
		Where("reports_allowed <> ?", models.ReportsOff).
		Where("next_report_at IS NULL OR next_report_at <= ?", now).
		Find(&out).Error
	return out, err
}

func (s *GormStore) AddMember(ctx context.Context, m *models.Member) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormStore) RemoveMember(ctx context.Context, teamID, userID int) error {
	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MembersOfTeam(ctx context.Context, teamID int) ([]models.Member, error) {
	var out []models.Member
	err := s.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&out).Error
	return out, err
}

func (s *GormStore) CreateChannel(ctx context.Context, ch *models.Channel) error {
	return s.db.WithContext(ctx).Create(ch).Error
}

func (s *GormStore) ChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error) {
	var out []models.Channel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&out).Error
	return out, err
}
