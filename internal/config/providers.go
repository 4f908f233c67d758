package config

import "time"

type Providers struct {
	Nominatim Nominatim
	Overpass  Overpass
	Air       Air
	Transit   Transit
}

// Nominatim geocodes street addresses. The public instance allows at most one
// request per second, hence MinInterval.
type Nominatim struct {
	BaseURL     string        `env:"NOMINATIM_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	UserAgent   string        `env:"NOMINATIM_USER_AGENT" envDefault:"tranquiltaiwan/1.0 (contact: ops@tranquiltaiwan.tw)"`
	MinInterval time.Duration `env:"NOMINATIM_MIN_INTERVAL" envDefault:"1s"`
	Timeout     time.Duration `env:"NOMINATIM_TIMEOUT" envDefault:"10s"`
	CacheTTL    time.Duration `env:"NOMINATIM_CACHE_TTL" envDefault:"168h"`
}

// Overpass serves OpenStreetMap feature queries. Several public instances are
// listed so the client can rotate away from a throttling one.
type Overpass struct {
	BaseURLs      []string      `env:"OVERPASS_BASE_URLS" envSeparator:"," envDefault:"https://overpass-api.de/api/interpreter,https://overpass.kumi.systems/api/interpreter"`
	Timeout       time.Duration `env:"OVERPASS_TIMEOUT" envDefault:"40s"`
	MinInterval   time.Duration `env:"OVERPASS_MIN_INTERVAL" envDefault:"500ms"`
	MaxAttempts   int           `env:"OVERPASS_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `env:"OVERPASS_RETRY_DELAY" envDefault:"2s"`
	MaxRetryDelay time.Duration `env:"OVERPASS_MAX_RETRY_DELAY" envDefault:"15s"`
	CacheTTL      time.Duration `env:"OVERPASS_CACHE_TTL" envDefault:"24h"`
}

// Air is the MOENV open-data API for air quality readings. Without an API key
// the air sub-score falls back to its neutral value.
type Air struct {
	BaseURL  string        `env:"MOENV_BASE_URL" envDefault:"https://data.moenv.gov.tw/api/v2"`
	APIKey   string        `env:"MOENV_API_KEY" json:"-"`
	Timeout  time.Duration `env:"MOENV_TIMEOUT" envDefault:"10s"`
	CacheTTL time.Duration `env:"MOENV_CACHE_TTL" envDefault:"30m"`
}

// Transit is the TDX transport API (OAuth2 client credentials). Without
// credentials the convenience sub-score is computed from Overpass data alone.
type Transit struct {
	BaseURL      string        `env:"TDX_BASE_URL" envDefault:"https://tdx.transportdata.tw/api/basic"`
	TokenURL     string        `env:"TDX_TOKEN_URL" envDefault:"https://tdx.transportdata.tw/auth/realms/TDXConnect/protocol/openid-connect/token"`
	ClientID     string        `env:"TDX_CLIENT_ID"`
	ClientSecret string        `env:"TDX_CLIENT_SECRET" json:"-"`
	Timeout      time.Duration `env:"TDX_TIMEOUT" envDefault:"10s"`
	CacheTTL     time.Duration `env:"TDX_CACHE_TTL" envDefault:"6h"`
}
