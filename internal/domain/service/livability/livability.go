package livability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"git.appkode.ru/pub/go/failure"
	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/service/address"
	"tranquiltaiwan/internal/domain/service/scoring"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/pkg/contextx"
	"tranquiltaiwan/pkg/errcodes"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	defaultScoreTTL        = 7 * 24 * time.Hour
	defaultSuggestionLimit = 5
	suggestionCacheTTL     = 5 * time.Minute
	recalcDedupTTL         = time.Minute
	minSuggestionRunes     = 2
)

type Geocoder interface {
	Geocode(ctx context.Context, query string) (entity.Address, error)
	Suggest(ctx context.Context, query string, limit int) ([]entity.Suggestion, error)
}

type EnvironmentCollector interface {
	Collect(ctx context.Context, location value.Coordinate) (entity.Environment, error)
}

type AddressRepository interface {
	Create(ctx context.Context, address *entity.Address) error
	GetByID(ctx context.Context, id int64) (*entity.Address, error)
	GetByNormalized(ctx context.Context, normalized string) (*entity.Address, error)
}

type ScoreRepository interface {
	Upsert(ctx context.Context, score *entity.Score) error
	GetByAddressID(ctx context.Context, addressID int64) (*entity.Score, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]entity.Score, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)
}

type UserRepository interface {
	GetOrCreate(ctx context.Context, externalID string) (*entity.User, error)
}

type RecalcEnqueuer interface {
	EnqueueRecalculate(ctx context.Context, addressID int64) (string, error)
}

type Service struct {
	geocoder    Geocoder
	collector   EnvironmentCollector
	addressRepo AddressRepository
	scoreRepo   ScoreRepository
	reportRepo  ReportRepository
	userRepo    UserRepository
	enqueuer    RecalcEnqueuer
	metrics     *observability.Metrics
	clock       clockwork.Clock

	scoreTTL        time.Duration
	suggestionLimit int

	suggestionCache *cache.Cache
	recalcDedup     *cache.Cache
}

func NewService(
	geocoder Geocoder,
	collector EnvironmentCollector,
	addressRepo AddressRepository,
	scoreRepo ScoreRepository,
	reportRepo ReportRepository,
	userRepo UserRepository,
	enqueuer RecalcEnqueuer,
) *Service {
	return &Service{
		geocoder:        geocoder,
		collector:       collector,
		addressRepo:     addressRepo,
		scoreRepo:       scoreRepo,
		reportRepo:      reportRepo,
		userRepo:        userRepo,
		enqueuer:        enqueuer,
		clock:           clockwork.NewRealClock(),
		scoreTTL:        defaultScoreTTL,
		suggestionLimit: defaultSuggestionLimit,
		suggestionCache: cache.New(suggestionCacheTTL, 10*time.Minute),
		recalcDedup:     cache.New(recalcDedupTTL, 5*time.Minute),
	}
}

func (s *Service) WithScoreTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.scoreTTL = ttl
	}
	return s
}

func (s *Service) WithSuggestionLimit(limit int) *Service {
	if limit > 0 {
		s.suggestionLimit = limit
	}
	return s
}

func (s *Service) WithMetrics(metrics *observability.Metrics) *Service {
	s.metrics = metrics
	return s
}

func (s *Service) WithClock(clock clockwork.Clock) *Service {
	s.clock = clock
	return s
}

// ScoreAddress resolves a raw address and returns its livability score. A
// stored score younger than the TTL is reused unless refresh is set.
func (s *Service) ScoreAddress(ctx context.Context, raw string, refresh bool) (*entity.Address, *entity.Score, error) {
	normalized := address.Normalize(raw)
	if normalized == "" {
		return nil, nil, failure.NewInvalidArgumentError(
			"address is empty after normalization",
			failure.WithCode(errcodes.InvalidAddress),
			failure.WithDescription("Address must not be empty"),
		)
	}

	addr, err := s.resolveAddress(ctx, raw, normalized)
	if err != nil {
		return nil, nil, err
	}

	if !refresh {
		score, err := s.scoreRepo.GetByAddressID(ctx, addr.ID)
		if err == nil && score.Fresh(s.clock.Now(), s.scoreTTL) {
			return addr, score, nil
		}
		if err != nil && !failure.IsNotFoundError(err) {
			return nil, nil, fmt.Errorf("get score: %w", err)
		}
	}

	score, err := s.computeAndStore(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	return addr, score, nil
}

// resolveAddress returns the stored address for the normalized form, or
// geocodes and stores a new one.
func (s *Service) resolveAddress(ctx context.Context, raw, normalized string) (*entity.Address, error) {
	existing, err := s.addressRepo.GetByNormalized(ctx, normalized)
	if err == nil {
		return existing, nil
	}
	if !failure.IsNotFoundError(err) {
		return nil, fmt.Errorf("get address: %w", err)
	}

	geocoded, err := s.geocoder.Geocode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}

	if !geocoded.Location.InTaiwan() {
		return nil, failure.NewUnprocessableEntityError(
			fmt.Sprintf("geocoded outside taiwan: %s", geocoded.Location.CacheKey()),
			failure.WithCode(errcodes.AddressNotResolvable),
			failure.WithDescription("Address could not be resolved to a location in Taiwan"),
		)
	}

	geocoded.Raw = raw
	geocoded.Normalized = normalized

	if err := s.addressRepo.Create(ctx, &geocoded); err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}

	return &geocoded, nil
}

func (s *Service) computeAndStore(ctx context.Context, addr *entity.Address) (*entity.Score, error) {
	env, err := s.collector.Collect(ctx, addr.Location)
	if err != nil {
		return nil, fmt.Errorf("collect environment: %w", err)
	}

	score := scoring.Compute(env)
	score.AddressID = addr.ID
	score.ComputedAt = s.clock.Now()

	if err := s.scoreRepo.Upsert(ctx, &score); err != nil {
		return nil, fmt.Errorf("upsert score: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ScoresComputed.Inc()
		s.metrics.ScoreTotal.Observe(score.Total)
	}

	logger(ctx).Info("score computed",
		"address_id", addr.ID,
		"total", score.Total,
		"degraded", len(env.Degraded),
	)

	return &score, nil
}

// GetScore returns the stored score for an address.
func (s *Service) GetScore(ctx context.Context, addressID int64) (*entity.Address, *entity.Score, error) {
	addr, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, nil, fmt.Errorf("get address: %w", err)
	}

	score, err := s.scoreRepo.GetByAddressID(ctx, addressID)
	if err != nil {
		return nil, nil, fmt.Errorf("get score: %w", err)
	}

	return addr, score, nil
}

// RefreshScore recomputes the score unconditionally. Called by the
// background recalculation handler.
func (s *Service) RefreshScore(ctx context.Context, addressID int64) (*entity.Score, error) {
	addr, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	return s.computeAndStore(ctx, addr)
}

// Recalculate queues a background refresh for an existing address. Repeat
// requests within the dedup window are rejected with a conflict.
func (s *Service) Recalculate(ctx context.Context, addressID int64) (string, error) {
	if addressID <= 0 {
		return "", failure.NewInvalidArgumentError(
			fmt.Sprintf("invalid address id: %d", addressID),
			failure.WithCode(errcodes.InvalidAddressID),
			failure.WithDescription("Address id must be positive"),
		)
	}

	if _, err := s.addressRepo.GetByID(ctx, addressID); err != nil {
		return "", fmt.Errorf("get address: %w", err)
	}

	dedupKey := strconv.FormatInt(addressID, 10)
	if _, found := s.recalcDedup.Get(dedupKey); found {
		return "", failure.NewConflictError(
			fmt.Sprintf("recalculation already queued: %d", addressID),
			failure.WithCode(errcodes.RecalcAlreadyQueued),
			failure.WithDescription("Recalculation is already queued for this address"),
		)
	}

	taskID, err := s.enqueuer.EnqueueRecalculate(ctx, addressID)
	if err != nil {
		return "", fmt.Errorf("enqueue recalculate: %w", err)
	}

	s.recalcDedup.Set(dedupKey, true, cache.DefaultExpiration)

	return taskID, nil
}

// CreateReport snapshots the current score into a shareable report. The
// report is linked to the requesting user when the request carries one.
func (s *Service) CreateReport(ctx context.Context, addressID int64) (*entity.Report, error) {
	addr, err := s.addressRepo.GetByID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	score, err := s.scoreRepo.GetByAddressID(ctx, addressID)
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}

	report := &entity.Report{
		ID:        xid.New().String(),
		AddressID: addressID,
		Address:   *addr,
		Score:     *score,
		CreatedAt: s.clock.Now(),
	}

	if externalID, err := contextx.UserIDFromContext(ctx); err == nil && externalID.String() != "" {
		user, err := s.userRepo.GetOrCreate(ctx, externalID.String())
		if err != nil {
			logger(ctx).Warn("user lookup failed, creating anonymous report", "error", err)
		} else {
			report.UserID = &user.ID
		}
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	return report, nil
}

// GetReport returns a stored report by its public id.
func (s *Service) GetReport(ctx context.Context, id string) (*entity.Report, error) {
	if _, err := xid.FromString(id); err != nil {
		return nil, failure.NewInvalidArgumentError(
			fmt.Sprintf("invalid report id: %q", id),
			failure.WithCode(errcodes.InvalidReportID),
			failure.WithDescription("Report id is malformed"),
		)
	}

	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	return report, nil
}

// Suggestions returns autocomplete candidates for a partial address. Terms
// shorter than two runes return an empty list without hitting the geocoder.
func (s *Service) Suggestions(ctx context.Context, term string) ([]entity.Suggestion, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, failure.NewInvalidArgumentError(
			"suggestion term is empty",
			failure.WithCode(errcodes.InvalidSuggestionTerm),
			failure.WithDescription("Query parameter q is required"),
		)
	}

	if utf8.RuneCountInString(trimmed) < minSuggestionRunes {
		return []entity.Suggestion{}, nil
	}

	key := address.Normalize(trimmed)

	if cached, found := s.suggestionCache.Get(key); found {
		return cached.([]entity.Suggestion), nil
	}

	suggestions, err := s.geocoder.Suggest(ctx, key, s.suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	s.suggestionCache.Set(key, suggestions, cache.DefaultExpiration)

	return suggestions, nil
}

// SweepStale enqueues refreshes for scores older than the TTL. Used by the
// periodic sweep worker.
func (s *Service) SweepStale(ctx context.Context, batchSize int) (entity.SweepSummary, error) {
	started := s.clock.Now()

	stale, err := s.scoreRepo.ListStale(ctx, started.Add(-s.scoreTTL), batchSize)
	if err != nil {
		return entity.SweepSummary{}, fmt.Errorf("list stale: %w", err)
	}

	summary := entity.SweepSummary{Started: started, Scanned: len(stale)}

	for _, score := range stale {
		if ctx.Err() != nil {
			summary.Finished = s.clock.Now()
			return summary, ctx.Err() //nolint:wrapcheck
		}

		dedupKey := strconv.FormatInt(score.AddressID, 10)
		if _, found := s.recalcDedup.Get(dedupKey); found {
			summary.Skipped++
			continue
		}

		if _, err := s.enqueuer.EnqueueRecalculate(ctx, score.AddressID); err != nil {
			logger(ctx).Error("sweep enqueue failed", "address_id", score.AddressID, "error", err)
			summary.Failed++
			continue
		}

		s.recalcDedup.Set(dedupKey, true, cache.DefaultExpiration)
		summary.Enqueued++
	}

	summary.Finished = s.clock.Now()

	return summary, nil
}
