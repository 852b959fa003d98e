package service

import (
	"context"
	"errors"
	"time"

	"github.com/NazeerGreene/WeatherApp/internal/model"
	"github.com/NazeerGreene/WeatherApp/internal/repository"
)

var (
	// ErrInvalidDateFormat marks a start/end segment that is not a strict
	// yyyy-MM-dd date.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidDateRange marks an end date that precedes the start date.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// WeatherServiceInterface resolves a location (and optional date bounds) into
// a weather result.
type WeatherServiceInterface interface {
	AtLocation(ctx context.Context, address string) (*model.WeatherResponse, error)
	AtLocationBetweenDates(ctx context.Context, location, start, end string) (*model.WeatherResponse, error)
}

// WeatherService delegates cached lookups to the repository.
type WeatherService struct {
	WeatherRepo repository.WeatherRepository
}

// NewWeatherService creates a service around the given repository.
func NewWeatherService(repo repository.WeatherRepository) *WeatherService {
	return &WeatherService{WeatherRepo: repo}
}

// AtLocation fetches current/default weather for the address, with no date
// bounds on the query.
func (s *WeatherService) AtLocation(ctx context.Context, address string) (*model.WeatherResponse, error) {
	query := model.WeatherQuery{Location: address}
	return s.WeatherRepo.GetWeather(ctx, query)
}

// AtLocationBetweenDates fetches weather for the location from start onward,
// bounded by end when it is non-empty. Both dates must be strict yyyy-MM-dd.
func (s *WeatherService) AtLocationBetweenDates(ctx context.Context, location, start, end string) (*model.WeatherResponse, error) {
	startDate, err := parseDate(start)
	if err != nil {
		return nil, err
	}

	query := model.WeatherQuery{Location: location, Start: &startDate}

	if end != "" {
		endDate, err := parseDate(end)
		if err != nil {
			return nil, err
		}
		if endDate.Before(startDate) {
			return nil, ErrInvalidDateRange
		}
		query.End = &endDate
	}

	return s.WeatherRepo.GetWeather(ctx, query)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateFormat, s)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}
