package archiver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestioncarteras/backend/internal/clients"
	"github.com/gestioncarteras/backend/internal/contracts"
	"github.com/gestioncarteras/backend/internal/loans"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// Result summarizes one archival run.
type Result struct {
	DryRun          bool      `json:"dry_run"`
	Cutoff          time.Time `json:"cutoff"`
	CandidateCards  int       `json:"candidate_cards"`
	ArchivedCards   int       `json:"archived_cards"`
	ClientsAffected int       `json:"clients_affected"`
	Errors          []string  `json:"errors,omitempty"`
}

// Archiver compacts old cancelled cards into the client's credit
// history. Each card is scored one last time through the engine, its
// summary appended to `historial_crediticio`, and the card with its
// payments deleted. One transaction per client: a failing client never
// rolls back the others.
type Archiver struct {
	db           *pgxpool.Pool
	cards        *loans.Repository
	clients      *clients.Repository
	engine       *scoring.Engine
	minAgeMonths int
	logger       *logger.Logger
}

// New creates a new Archiver instance
func New(db *pgxpool.Pool, cards *loans.Repository, cl *clients.Repository, engine *scoring.Engine, minAgeMonths int, log *logger.Logger) *Archiver {
	return &Archiver{
		db:           db,
		cards:        cards,
		clients:      cl,
		engine:       engine,
		minAgeMonths: minAgeMonths,
		logger:       log.WithField("component", "archiver"),
	}
}

// Run archives every cancelled card whose close date is older than the
// configured age. With dryRun set it reports what would happen without
// touching the database.
func (a *Archiver) Run(ctx context.Context, now time.Time, dryRun bool) (*Result, error) {
	cutoff := now.AddDate(0, -a.minAgeMonths, 0)

	result := &Result{DryRun: dryRun, Cutoff: cutoff}

	candidates, err := a.cards.CancelledBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list archival candidates: %w", err)
	}
	result.CandidateCards = len(candidates)

	if len(candidates) == 0 {
		a.logger.WithField("cutoff", cutoff.Format("2006-01-02")).Info("No cards eligible for archival")
		return result, nil
	}

	byClient := groupByClient(candidates)

	a.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format("2006-01-02"),
		"cards":   len(candidates),
		"clients": len(byClient),
		"dry_run": dryRun,
	}).Info("Starting archival run")

	for _, clientID := range sortedClientIDs(byClient) {
		cards := byClient[clientID]

		archived, err := a.archiveClient(ctx, clientID, cards, now, dryRun)
		if err != nil {
			a.logger.WithError(err).WithField("client", clientID).Error("Client archival failed")
			result.Errors = append(result.Errors, fmt.Sprintf("client %s: %v", clientID, err))
			continue
		}

		result.ArchivedCards += archived
		result.ClientsAffected++
	}

	a.logger.WithFields(map[string]interface{}{
		"archived": result.ArchivedCards,
		"clients":  result.ClientsAffected,
		"errors":   len(result.Errors),
	}).Info("Archival run finished")

	return result, nil
}

// archiveClient compacts all of one client's eligible cards inside a
// single transaction.
func (a *Archiver) archiveClient(ctx context.Context, clientID string, cards []contracts.CardTerms, now time.Time, dryRun bool) (int, error) {
	items := make([]contracts.CreditHistoryItem, 0, len(cards))
	codes := make([]string, 0, len(cards))

	for _, card := range cards {
		payments, err := a.cards.PaymentsByCard(ctx, card.Code)
		if err != nil {
			return 0, fmt.Errorf("payments for %s: %w", card.Code, err)
		}

		indicators := a.engine.ComputeCardIndicators(card, payments, now)
		items = append(items, CompactCard(card, indicators))
		codes = append(codes, card.Code)
	}

	if dryRun {
		a.logger.WithFields(map[string]interface{}{
			"client": clientID,
			"cards":  len(codes),
		}).Info("Dry run: would archive")
		return len(codes), nil
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	history, found, err := a.clients.HistoryForUpdate(ctx, tx, clientID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("client %s not found", clientID)
	}

	history = append(history, items...)

	if err := a.clients.ReplaceHistory(ctx, tx, clientID, history); err != nil {
		return 0, err
	}
	if err := a.cards.DeleteCards(ctx, tx, codes); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"client": clientID,
		"cards":  len(codes),
	}).Info("Client cards archived")

	return len(codes), nil
}

// CompactCard builds the history item persisted for an archived card.
// The final indicators are frozen here so the card never needs to be
// re-simulated after its payments are gone.
func CompactCard(card contracts.CardTerms, indicators contracts.CardIndicators) contracts.CreditHistoryItem {
	return contracts.CreditHistoryItem{
		ReferenceID:            card.Code,
		StartDate:              card.StartDate.Format("2006-01-02"),
		Amount:                 card.Principal,
		DaysOverdueFinal:       indicators.DaysOverdueFinal,
		PaymentFrequencyPct:    indicators.PaymentFrequencyPct,
		MaxOverdueInstallments: indicators.MaxOverdueInstallments,
		ClosureStressScore:     indicators.ClosureStressScore,
		IndividualScore:        indicators.IndividualScore,
		FinalState:             string(card.State),
		AccountID:              card.AccountID,
		// Labeled per requesting account at report time; stored neutral.
		CompanyLabel: contracts.CompanyLabelExternal,
	}
}

func groupByClient(cards []contracts.CardTerms) map[string][]contracts.CardTerms {
	grouped := make(map[string][]contracts.CardTerms)
	for _, card := range cards {
		grouped[card.ClientID] = append(grouped[card.ClientID], card)
	}
	return grouped
}

func sortedClientIDs(byClient map[string][]contracts.CardTerms) []string {
	ids := make([]string, 0, len(byClient))
	for id := range byClient {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
