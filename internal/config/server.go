package config

import "time"

type Server struct {
	Name                string        `env:"SERVICE_NAME" envDefault:"tranquiltaiwan"`
	Version             string        `env:"SERVICE_VERSION" envDefault:"dev"`
	ListenAddress       string        `env:"SERVER_LISTEN_ADDRESS" envDefault:":8080"`
	MetricListenAddress string        `env:"SERVER_METRIC_LISTEN_ADDRESS" envDefault:":9090"`
	ProbeListenAddress  string        `env:"SERVER_PROBE_LISTEN_ADDRESS" envDefault:":8091"`
	ShutdownTimeout     time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"text"`
	LogFieldMaxLen      int           `env:"LOG_FIELD_MAX_LEN" envDefault:"2048"`
}
