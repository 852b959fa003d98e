package model

import "time"

// DateFormat is the only accepted layout for start/end date path segments.
const DateFormat = "2006-01-02"

// WeatherQuery identifies one weather lookup: a location plus optional date
// bounds. End set implies Start set; the service layer enforces Start <= End.
type WeatherQuery struct {
	Location string
	Start    *time.Time
	End      *time.Time
}

// CacheKey derives the deterministic cache fingerprint for the query. Dates
// are included only when present, so a bare-location query and a dated query
// for the same location never collide.
func (q WeatherQuery) CacheKey() string {
	key := "weather:" + q.Location
	if q.Start != nil {
		key += ":" + q.Start.Format(DateFormat)
	}
	if q.End != nil {
		key += ":" + q.End.Format(DateFormat)
	}
	return key
}

// WeatherResponse is a fixed-schema transcription of the upstream timeline
// payload. Upstream fields we do not model are dropped on decode.
type WeatherResponse struct {
	Address           string             `json:"address"`
	ResolvedAddress   string             `json:"resolvedAddress"`
	Timezone          string             `json:"timezone"`
	Description       string             `json:"description,omitempty"`
	Days              []DayWeather       `json:"days"`
	CurrentConditions *CurrentConditions `json:"currentConditions,omitempty"`
}

// DayWeather is one forecast entry in the requested date range.
type DayWeather struct {
	Datetime    string  `json:"datetime"`
	Temp        float64 `json:"temp"`
	TempMax     float64 `json:"tempmax"`
	TempMin     float64 `json:"tempmin"`
	Humidity    float64 `json:"humidity"`
	Precip      float64 `json:"precip"`
	WindSpeed   float64 `json:"windspeed"`
	Conditions  string  `json:"conditions"`
	Description string  `json:"description,omitempty"`
}

// CurrentConditions holds the observation at request time, when upstream
// includes one.
type CurrentConditions struct {
	Datetime   string  `json:"datetime"`
	Temp       float64 `json:"temp"`
	FeelsLike  float64 `json:"feelslike"`
	Humidity   float64 `json:"humidity"`
	WindSpeed  float64 `json:"windspeed"`
	Conditions string  `json:"conditions"`
}
