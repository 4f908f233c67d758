package config

import "time"

type Worker struct {
	SweepInterval  time.Duration `env:"WORKER_SWEEP_INTERVAL" envDefault:"1h"`
	ScoreTTL       time.Duration `env:"WORKER_SCORE_TTL" envDefault:"168h"`
	SweepBatchSize int           `env:"WORKER_SWEEP_BATCH_SIZE" envDefault:"50"`
	QueueName      string        `env:"WORKER_QUEUE_NAME" envDefault:"scores"`
	Concurrency    int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
}
