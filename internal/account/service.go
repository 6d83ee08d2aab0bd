package account

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("account")

type Service struct {
	DB *gorm.DB
}

func (s *Service) Preferences(ctx context.Context, userID string) (Preferences, error) {
	var p Preferences
	res := s.DB.WithContext(ctx).Where("id = ?", userID).Limit(1).Find(&p)
	if res.Error != nil {
		return Preferences{}, errors.Wrapf(res.Error, "load preferences of %s", userID)
	}
	if res.RowsAffected == 0 {
		return Preferences{ID: userID}, nil
	}
	return p, nil
}

// SavePreferences inserts or replaces the user's settings row.
func (s *Service) SavePreferences(ctx context.Context, userID string, darkMode bool) (Preferences, error) {
	ctx, span := tracer.Start(ctx, "Account.Service.SavePreferences")
	defer span.End()

	now := time.Now()
	p := Preferences{ID: userID, DarkMode: darkMode, CreatedAt: now, UpdatedAt: now}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dark_mode", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		span.RecordError(err)
		return Preferences{}, errors.Wrapf(err, "save preferences of %s", userID)
	}
	return s.Preferences(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).Delete(&Preferences{}).Error; err != nil {
		return errors.Wrapf(err, "delete preferences of %s", userID)
	}
	return nil
}

// DeleteAll wipes every preferences row.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Preferences{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete all preferences")
	}
	return res.RowsAffected, nil
}
