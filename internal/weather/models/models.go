package models

// Location is a geocoding hit.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CurrentWeather is the forecast's current conditions, returned to callers as is.
type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	IsDay         int     `json:"is_day"`
	Time          string  `json:"time"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Query selects a location by city name or by coordinates. A city takes
// precedence when both are present.
type Query struct {
	City        string
	Coordinates *Coordinates
}
