package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	WeatherSunny  = "sunny"
	WeatherCloudy = "cloudy"
	WeatherRainy  = "rainy"
)

func ValidWeather(s string) bool {
	switch s {
	case WeatherSunny, WeatherCloudy, WeatherRainy:
		return true
	}
	return false
}

// Weather holds the single current-weather row.
type Weather struct {
	bun.BaseModel `bun:"table:weather"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	Current   string    `bun:"current,notnull,default:'sunny'" json:"current"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

type WeatherHistory struct {
	bun.BaseModel `bun:"table:weather_history"`

	ID      int64     `bun:"id,pk,autoincrement" json:"-"`
	Weather string    `bun:"weather,notnull" json:"weather"`
	Date    time.Time `bun:"date,notnull,default:current_timestamp" json:"date"`
}
