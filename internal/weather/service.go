// Package weather tracks the current weather shown on the reservation
// screen. One row holds the current value; every change appends history.
package weather

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"browntable/internal/apperr"
	"browntable/internal/logger"
	"browntable/internal/models"
)

const (
	historyCap   = 100
	historyShown = 10
)

type Service struct {
	bun *bun.DB
	log *logger.Logger
}

func NewService(bunDB *bun.DB, log *logger.Logger) *Service {
	return &Service{bun: bunDB, log: log}
}

// Current returns the current weather, defaulting to sunny when no row
// exists yet.
func (s *Service) Current(ctx context.Context) (*models.WeatherView, error) {
	row := new(models.Weather)
	err := s.bun.NewSelect().Model(row).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.WeatherView{Current: models.WeatherSunny}, nil
		}
		return nil, apperr.Internal(err, "failed to load weather")
	}
	return &models.WeatherView{Current: row.Current, LastUpdated: row.UpdatedAt}, nil
}

// Update sets the current weather and appends a history row.
func (s *Service) Update(ctx context.Context, req models.WeatherUpdateRequest) (*models.WeatherView, error) {
	if !models.ValidWeather(req.Weather) {
		return nil, apperr.Validation("weather must be sunny, cloudy or rainy")
	}

	now := time.Now()
	err := s.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Weather)
		err := tx.NewSelect().Model(row).Limit(1).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			row = &models.Weather{Current: req.Weather, UpdatedAt: now}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			row.Current = req.Weather
			row.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(row).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		if _, err := tx.NewInsert().Model(&models.WeatherHistory{Weather: req.Weather, Date: now}).Exec(ctx); err != nil {
			return err
		}
		// keep the log bounded
		_, err = tx.NewDelete().Model((*models.WeatherHistory)(nil)).
			Where("id NOT IN (SELECT id FROM weather_history ORDER BY id DESC LIMIT ?)", historyCap).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to update weather")
	}

	s.log.Info("WEATHER", "Weather set to "+req.Weather)
	return &models.WeatherView{Current: req.Weather, LastUpdated: now}, nil
}

// History returns the most recent weather changes, newest first.
func (s *Service) History(ctx context.Context) ([]models.WeatherHistory, error) {
	var rows []models.WeatherHistory
	err := s.bun.NewSelect().Model(&rows).Order("id DESC").Limit(historyShown).Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load weather history")
	}
	return rows, nil
}
