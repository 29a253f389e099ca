package weather

// Parameter identifies one of the observed weather variables. The names
// match the upstream API's field names so they can be sent on the wire
// and stored without translation.
type Parameter string

const (
	ParamTemperature Parameter = "temperature_2m"
	ParamHumidity    Parameter = "relative_humidity_2m"
	ParamRain        Parameter = "rain"
	ParamSnowfall    Parameter = "snowfall"
)

// AllowedParameters returns the full parameter set in canonical order.
// Every fetch requests all of them; a viewer's parameter selection only
// filters what gets charted client-side, never what is fetched.
func AllowedParameters() []Parameter {
	return []Parameter{ParamTemperature, ParamHumidity, ParamRain, ParamSnowfall}
}

// Valid reports whether p is a member of the allowed parameter set.
func (p Parameter) Valid() bool {
	switch p {
	case ParamTemperature, ParamHumidity, ParamRain, ParamSnowfall:
		return true
	}
	return false
}

// Coordinates is the location a session tracks. Values are kept as the
// raw query strings the client supplied; they are only ever forwarded
// upstream, never computed with.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Observation is a single stored measurement. Observations are
// immutable; the only delete is the bulk purge when a new session
// starts. Timestamps stay in the ISO-8601 form the upstream reported.
type Observation struct {
	Timestamp string
	Latitude  string
	Longitude string
	Parameter Parameter
	Value     float64
}

// DataPoint is one chartable (timestamp, value) pair.
type DataPoint struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// ParameterSeries groups one parameter's datapoints, ordered by
// timestamp ascending.
type ParameterSeries struct {
	Param   Parameter   `json:"param"`
	Dataset []DataPoint `json:"dataset"`
}

// Reading is one fetch result from the upstream source: a timestamp
// plus one value per requested parameter.
type Reading struct {
	Timestamp string
	Values    map[Parameter]float64
}
