package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gestioncarteras/backend/internal/contracts"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/logger"
	"github.com/gestioncarteras/backend/pkg/redis"
)

// ErrClientNotFound is returned when the requested client does not
// exist in `clientes`.
var ErrClientNotFound = errors.New("client not found")

// recentHistoryLimit splits the compacted history: the newest items up
// to this count weigh more in the global score than the rest.
const recentHistoryLimit = 3

// ScorePublisher receives score-change events. The realtime hub
// implements it; a nil publisher disables the notifications.
type ScorePublisher interface {
	PublishScoreChanged(clientID string, previous, current int)
}

// Service builds the internal credit report ("DataCrédito interno") for
// one client: compacted history plus a live simulation of every
// non-archived card, blended into the global score.
type Service struct {
	cards         contracts.CardReader
	clients       contracts.ClientStore
	collectors    contracts.CollectorDirectory
	engine        *scoring.Engine
	cache         *redis.Cache
	publisher     ScorePublisher
	maxConcurrent int
	cacheTTL      time.Duration
	logger        *logger.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewService creates a new report Service
func NewService(
	cards contracts.CardReader,
	clients contracts.ClientStore,
	collectors contracts.CollectorDirectory,
	engine *scoring.Engine,
	cache *redis.Cache,
	publisher ScorePublisher,
	maxConcurrent int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		cards:         cards,
		clients:       clients,
		collectors:    collectors,
		engine:        engine,
		cache:         cache,
		publisher:     publisher,
		maxConcurrent: maxConcurrent,
		cacheTTL:      cacheTTL,
		logger:        log.WithField("component", "report"),
		now:           time.Now,
	}
}

// BuildReport returns the client report, serving from the Redis cache
// when a fresh copy exists. accountID is the requesting account; its
// own cards are labeled "Esta Empresa", everything else is anonymized.
func (s *Service) BuildReport(ctx context.Context, clientID string, accountID *int64) (*contracts.ClientReport, error) {
	if s.cache != nil {
		var cached contracts.ClientReport
		found, err := s.cache.Get(ctx, redis.ReportKey(clientID), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Report cache read failed")
		}
		if found {
			s.relabel(ctx, &cached, accountID)
			return &cached, nil
		}
	}

	report, err := s.buildReport(ctx, clientID, s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.ReportKey(clientID), report, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Report cache write failed")
		}
	}

	s.relabel(ctx, report, accountID)
	return report, nil
}

// RefreshScore recomputes the client's global score from scratch and
// drops any cached report so the next read sees fresh numbers. Used by
// the nightly refresh job.
func (s *Service) RefreshScore(ctx context.Context, clientID string) (int, error) {
	report, err := s.buildReport(ctx, clientID, s.now())
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, redis.ReportKey(clientID)); err != nil {
			s.logger.WithError(err).Warn("Report cache invalidation failed")
		}
	}

	return report.GlobalScore, nil
}

// CardIndicators live-scores a single card without building the full
// report.
func (s *Service) CardIndicators(ctx context.Context, card contracts.CardTerms, evalDate time.Time) (contracts.CardIndicators, error) {
	payments, err := s.cards.PaymentsByCard(ctx, card.Code)
	if err != nil {
		return contracts.CardIndicators{}, fmt.Errorf("payments for %s: %w", card.Code, err)
	}
	return s.engine.ComputeCardIndicators(card, payments, evalDate), nil
}

// buildReport assembles the uncached, unlabeled report.
func (s *Service) buildReport(ctx context.Context, clientID string, now time.Time) (*contracts.ClientReport, error) {
	client, err := s.clients.ClientByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	cards, err := s.cards.CardsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}

	scored, err := s.scoreCards(ctx, cards, now)
	if err != nil {
		return nil, err
	}

	recent, older := splitHistory(client.CreditHistory)

	// Only live cards feed the active group; a cancelled card that has
	// not been archived yet is already history and joins the recent
	// group ahead of the compacted items, so it can never trigger the
	// critical override.
	liveScores := make([]float64, 0, len(scored))
	closedScores := make([]float64, 0)
	for _, sc := range scored {
		if sc.State.Live() {
			liveScores = append(liveScores, sc.Indicators.IndividualScore)
		} else {
			closedScores = append(closedScores, sc.Indicators.IndividualScore)
		}
	}

	globalScore := s.engine.ComputeGlobalScore(liveScores, append(closedScores, itemScores(recent)...), itemScores(older))

	report := &contracts.ClientReport{
		ClientID:        client.Identification,
		FirstName:       client.FirstName,
		LastName:        client.LastName,
		GlobalScore:     globalScore,
		TotalClosed:     len(client.CreditHistory) + len(closedScores),
		TotalActive:     len(liveScores),
		AvgOverdueDays:  avgOverdueDays(client.CreditHistory, scored),
		AvgFrequencyPct: avgFrequency(scored, client.CreditHistory),
		ActiveCards:     scored,
		CompactHistory:  client.CreditHistory,
		GeneratedAt:     now,
	}

	s.refreshStoredScore(ctx, client, globalScore)

	return report, nil
}

// scoreCards runs the engine over every card with a bounded number of
// concurrent payment loads. The engine is pure, so per-card calls are
// free to overlap; order of the input is preserved.
func (s *Service) scoreCards(ctx context.Context, cards []contracts.CardTerms, now time.Time) ([]contracts.CardReport, error) {
	if len(cards) == 0 {
		return nil, nil
	}

	results := make([]contracts.CardReport, len(cards))
	errs := make([]error, len(cards))

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for i, card := range cards {
		wg.Add(1)
		go func(i int, card contracts.CardTerms) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			payments, err := s.cards.PaymentsByCard(ctx, card.Code)
			if err != nil {
				errs[i] = fmt.Errorf("payments for %s: %w", card.Code, err)
				return
			}

			results[i] = contracts.CardReport{
				ReferenceID:  card.Code,
				StartDate:    card.StartDate.Format("2006-01-02"),
				Amount:       card.Principal,
				State:        card.State,
				CompanyLabel: contracts.CompanyLabelExternal,
				AccountID:    card.AccountID,
				CollectorID:  card.CollectorID,
				Indicators:   s.engine.ComputeCardIndicators(card, payments, now),
			}
		}(i, card)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// relabel marks own-account cards and history items for the requesting
// account. Labeling happens after the cache so one cached report serves
// every account.
func (s *Service) relabel(ctx context.Context, report *contracts.ClientReport, accountID *int64) {
	for i := range report.ActiveCards {
		report.ActiveCards[i].CompanyLabel = contracts.CompanyLabelExternal
	}
	for i := range report.CompactHistory {
		report.CompactHistory[i].CompanyLabel = contracts.CompanyLabelExternal
	}

	if accountID == nil {
		return
	}

	// Legacy cards predate cuenta_id; for those, membership of the
	// collector in the account decides ownership.
	var ownCollectors map[string]bool
	if s.collectors != nil {
		var err error
		ownCollectors, err = s.collectors.CollectorIDs(ctx, *accountID)
		if err != nil {
			s.logger.WithError(err).Warn("Collector lookup failed, labeling by account only")
		}
	}

	for i := range report.ActiveCards {
		card := &report.ActiveCards[i]
		if sameAccount(card.AccountID, accountID) ||
			(card.AccountID == nil && ownCollectors[card.CollectorID]) {
			card.CompanyLabel = contracts.CompanyLabelOwn
		}
	}
	for i := range report.CompactHistory {
		if sameAccount(report.CompactHistory[i].AccountID, accountID) {
			report.CompactHistory[i].CompanyLabel = contracts.CompanyLabelOwn
		}
	}
}

// refreshStoredScore updates the cached score on the client row when it
// moved, and notifies the realtime hub. Failures here degrade to a log
// line: the report itself is already computed.
func (s *Service) refreshStoredScore(ctx context.Context, client *contracts.Client, score int) {
	if score == client.GlobalScore {
		return
	}

	if err := s.clients.UpdateScore(ctx, client.Identification, score); err != nil {
		s.logger.WithError(err).WithField("client", client.Identification).Warn("Stored score refresh failed")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"client":   client.Identification,
		"previous": client.GlobalScore,
		"current":  score,
	}).Info("Global score updated")

	if s.publisher != nil {
		s.publisher.PublishScoreChanged(client.Identification, client.GlobalScore, score)
	}
}

// splitHistory orders the compacted history newest first and cuts it
// into the recent slice (heavier weight) and the remainder.
func splitHistory(history []contracts.CreditHistoryItem) (recent, older []contracts.CreditHistoryItem) {
	sorted := make([]contracts.CreditHistoryItem, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		// ISO dates compare correctly as strings.
		return sorted[i].StartDate > sorted[j].StartDate
	})

	if len(sorted) <= recentHistoryLimit {
		return sorted, nil
	}
	return sorted[:recentHistoryLimit], sorted[recentHistoryLimit:]
}

func itemScores(items []contracts.CreditHistoryItem) []float64 {
	if len(items) == 0 {
		return nil
	}
	scores := make([]float64, 0, len(items))
	for _, item := range items {
		scores = append(scores, item.IndividualScore)
	}
	return scores
}

func avgOverdueDays(history []contracts.CreditHistoryItem, cards []contracts.CardReport) float64 {
	total := len(history) + len(cards)
	if total == 0 {
		return 0
	}
	var sum float64
	for _, item := range history {
		sum += float64(item.DaysOverdueFinal)
	}
	for _, card := range cards {
		sum += float64(card.Indicators.DaysOverdueFinal)
	}
	return sum / float64(total)
}

func avgFrequency(cards []contracts.CardReport, history []contracts.CreditHistoryItem) float64 {
	total := len(cards) + len(history)
	if total == 0 {
		return 0
	}
	var sum float64
	for _, card := range cards {
		sum += card.Indicators.PaymentFrequencyPct
	}
	for _, item := range history {
		sum += item.PaymentFrequencyPct
	}
	return sum / float64(total)
}

func sameAccount(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
