package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestioncarteras/backend/internal/contracts"
	"github.com/gestioncarteras/backend/internal/scoring"
	"github.com/gestioncarteras/backend/pkg/config"
	"github.com/gestioncarteras/backend/pkg/logger"
)

type fakeCardReader struct {
	cards    map[string][]contracts.CardTerms
	payments map[string][]contracts.Payment
}

func (f *fakeCardReader) CardsByClient(_ context.Context, clientID string) ([]contracts.CardTerms, error) {
	return f.cards[clientID], nil
}

func (f *fakeCardReader) PaymentsByCard(_ context.Context, cardCode string) ([]contracts.Payment, error) {
	return f.payments[cardCode], nil
}

func (f *fakeCardReader) CancelledBefore(_ context.Context, _ time.Time) ([]contracts.CardTerms, error) {
	return nil, nil
}

type fakeClientStore struct {
	clients map[string]*contracts.Client
	updated map[string]int
}

func (f *fakeClientStore) ClientByID(_ context.Context, clientID string) (*contracts.Client, error) {
	return f.clients[clientID], nil
}

func (f *fakeClientStore) UpdateScore(_ context.Context, clientID string, score int) error {
	if f.updated == nil {
		f.updated = make(map[string]int)
	}
	f.updated[clientID] = score
	return nil
}

type fakeDirectory struct {
	members map[int64]map[string]bool
}

func (f *fakeDirectory) CollectorIDs(_ context.Context, accountID int64) (map[string]bool, error) {
	return f.members[accountID], nil
}

type fakePublisher struct {
	events []scoreEvent
}

type scoreEvent struct {
	clientID          string
	previous, current int
}

func (f *fakePublisher) PublishScoreChanged(clientID string, previous, current int) {
	f.events = append(f.events, scoreEvent{clientID, previous, current})
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "console"})
}

var reportStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func perfectDailyPayments(code string, amount float64, days int) []contracts.Payment {
	out := make([]contracts.Payment, 0, days)
	for d := 1; d <= days; d++ {
		out = append(out, contracts.Payment{
			CardCode: code,
			Date:     reportStart.AddDate(0, 0, d),
			Amount:   amount,
		})
	}
	return out
}

func newTestService(cards *fakeCardReader, clients *fakeClientStore, dir *fakeDirectory, pub *fakePublisher) *Service {
	// A nil *fakePublisher must stay a nil interface, or the service's
	// publisher guard would pass on a typed nil.
	var publisher ScorePublisher
	if pub != nil {
		publisher = pub
	}
	svc := NewService(cards, clients, dir, scoring.NewEngine(), nil, publisher, 4, time.Minute, testLogger())
	svc.now = func() time.Time { return reportStart.AddDate(0, 0, 20) }
	return svc
}

func TestBuildReportUnknownClient(t *testing.T) {
	svc := newTestService(&fakeCardReader{}, &fakeClientStore{}, nil, nil)

	_, err := svc.BuildReport(context.Background(), "nadie", nil)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBuildReportNewClient(t *testing.T) {
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"1045228599": {Identification: "1045228599", FirstName: "Ana", LastName: "Rojas", GlobalScore: 100},
	}}
	svc := newTestService(&fakeCardReader{}, clients, nil, nil)

	got, err := svc.BuildReport(context.Background(), "1045228599", nil)
	require.NoError(t, err)

	assert.Equal(t, 100, got.GlobalScore)
	assert.Equal(t, 0, got.TotalActive)
	assert.Equal(t, 0, got.TotalClosed)
	assert.Empty(t, got.ActiveCards)
	assert.Empty(t, clients.updated, "unchanged score must not be rewritten")
}

func TestBuildReportScoresLiveCardsAndRefreshesScore(t *testing.T) {
	card := contracts.CardTerms{
		Code:        "TARJ-0001",
		ClientID:    "1045228599",
		StartDate:   reportStart,
		Principal:   1_000_000,
		InterestPct: 20,
		Installment: 40,
		Modality:    "diario",
		State:       contracts.CardStateActive,
	}

	cards := &fakeCardReader{
		cards:    map[string][]contracts.CardTerms{"1045228599": {card}},
		payments: map[string][]contracts.Payment{"TARJ-0001": perfectDailyPayments("TARJ-0001", 30_000, 20)},
	}
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"1045228599": {Identification: "1045228599", GlobalScore: 70},
	}}
	pub := &fakePublisher{}
	svc := newTestService(cards, clients, nil, pub)

	got, err := svc.BuildReport(context.Background(), "1045228599", nil)
	require.NoError(t, err)

	require.Len(t, got.ActiveCards, 1)
	assert.Equal(t, 100.0, got.ActiveCards[0].Indicators.PaymentFrequencyPct)
	assert.Equal(t, 100, got.GlobalScore)
	assert.Equal(t, 1, got.TotalActive)

	// Score moved from 70 to 100: persisted and published.
	assert.Equal(t, 100, clients.updated["1045228599"])
	require.Len(t, pub.events, 1)
	assert.Equal(t, scoreEvent{"1045228599", 70, 100}, pub.events[0])
}

func TestBuildReportCancelledCardCountsAsHistory(t *testing.T) {
	cancelledAt := reportStart.AddDate(0, 0, 100)
	cancelled := contracts.CardTerms{
		Code: "TARJ-0098", ClientID: "555", StartDate: reportStart,
		Principal: 1_000_000, InterestPct: 20, Installment: 40,
		Modality: "diario", State: contracts.CardStateCancelled,
		CancelledAt: &cancelledAt,
	}
	active := contracts.CardTerms{
		Code: "TARJ-0099", ClientID: "555", StartDate: reportStart,
		Principal: 1_000_000, InterestPct: 20, Installment: 40,
		Modality: "diario", State: contracts.CardStateActive,
	}

	cards := &fakeCardReader{
		cards: map[string][]contracts.CardTerms{"555": {cancelled, active}},
		payments: map[string][]contracts.Payment{
			"TARJ-0099": perfectDailyPayments("TARJ-0099", 30_000, 20),
		},
	}
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"555": {Identification: "555", GlobalScore: 68, CreditHistory: []contracts.CreditHistoryItem{
			{ReferenceID: "H-1", StartDate: "2024-05-01", IndividualScore: 20, PaymentFrequencyPct: 50, DaysOverdueFinal: 20},
		}},
	}}
	svc := newTestService(cards, clients, nil, nil)

	got, err := svc.BuildReport(context.Background(), "555", nil)
	require.NoError(t, err)

	// The never-paid cancelled card scores 12, but it is no live debt:
	// together with the compacted H-1 it weighs in as recent history at
	// 0.3 against the perfect active card at 0.5, instead of pinning the
	// client below the critical threshold.
	// (0.5*100 + 0.3*avg(12, 20)) / 0.8 = 68.5.
	require.Len(t, got.ActiveCards, 2)
	assert.InDelta(t, 12.0, got.ActiveCards[0].Indicators.IndividualScore, 0.001)
	assert.Equal(t, 68, got.GlobalScore)
	assert.Equal(t, 1, got.TotalActive)
	assert.Equal(t, 2, got.TotalClosed, "un-archived cancelled card counts as closed")

	// Overdue and frequency averages span history plus every analyzed
	// card: (20 - 20 + 60) / 3 and (50 + 100 + 0) / 3.
	assert.InDelta(t, 20.0, got.AvgOverdueDays, 0.001)
	assert.InDelta(t, 50.0, got.AvgFrequencyPct, 0.001)
}

func TestRefreshStoredScoreWithoutPublisher(t *testing.T) {
	card := contracts.CardTerms{
		Code: "TARJ-0001", ClientID: "777", StartDate: reportStart,
		Principal: 1_000_000, InterestPct: 20, Installment: 40,
		Modality: "diario", State: contracts.CardStateActive,
	}
	cards := &fakeCardReader{
		cards:    map[string][]contracts.CardTerms{"777": {card}},
		payments: map[string][]contracts.Payment{"TARJ-0001": perfectDailyPayments("TARJ-0001", 30_000, 20)},
	}
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"777": {Identification: "777", GlobalScore: 70},
	}}
	svc := newTestService(cards, clients, nil, nil)

	// A moved score with no realtime hub wired still persists quietly.
	got, err := svc.BuildReport(context.Background(), "777", nil)
	require.NoError(t, err)
	assert.Equal(t, 100, got.GlobalScore)
	assert.Equal(t, 100, clients.updated["777"])
}

func TestBuildReportBlendsCompactHistory(t *testing.T) {
	history := []contracts.CreditHistoryItem{
		{ReferenceID: "H-1", StartDate: "2024-02-01", IndividualScore: 90, PaymentFrequencyPct: 95, DaysOverdueFinal: 2},
		{ReferenceID: "H-2", StartDate: "2024-06-01", IndividualScore: 80, PaymentFrequencyPct: 90, DaysOverdueFinal: 6},
	}
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"222": {Identification: "222", GlobalScore: 85, CreditHistory: history},
	}}
	svc := newTestService(&fakeCardReader{}, clients, nil, nil)

	got, err := svc.BuildReport(context.Background(), "222", nil)
	require.NoError(t, err)

	// Both items are recent (<=3): plain average of 90 and 80.
	assert.Equal(t, 85, got.GlobalScore)
	assert.Equal(t, 2, got.TotalClosed)
	assert.InDelta(t, 4.0, got.AvgOverdueDays, 0.001)
	assert.InDelta(t, 92.5, got.AvgFrequencyPct, 0.001)
}

func TestBuildReportLabelsOwnAccount(t *testing.T) {
	own := int64(7)
	other := int64(9)
	cardOwn := contracts.CardTerms{
		Code: "TARJ-A", ClientID: "333", StartDate: reportStart,
		Principal: 100_000, Installment: 10, Modality: "diario",
		State: contracts.CardStateActive, AccountID: &own,
	}
	cardOther := contracts.CardTerms{
		Code: "TARJ-B", ClientID: "333", StartDate: reportStart,
		Principal: 100_000, Installment: 10, Modality: "diario",
		State: contracts.CardStateActive, AccountID: &other,
	}
	cardLegacy := contracts.CardTerms{
		Code: "TARJ-C", ClientID: "333", StartDate: reportStart,
		Principal: 100_000, Installment: 10, Modality: "diario",
		State: contracts.CardStateActive, CollectorID: "emp-1",
	}

	cards := &fakeCardReader{
		cards: map[string][]contracts.CardTerms{"333": {cardOwn, cardOther, cardLegacy}},
	}
	clients := &fakeClientStore{clients: map[string]*contracts.Client{
		"333": {Identification: "333", GlobalScore: 100, CreditHistory: []contracts.CreditHistoryItem{
			{ReferenceID: "H-1", StartDate: "2024-02-01", IndividualScore: 100, AccountID: &own},
			{ReferenceID: "H-2", StartDate: "2024-03-01", IndividualScore: 100, AccountID: &other},
		}},
	}}
	dir := &fakeDirectory{members: map[int64]map[string]bool{7: {"emp-1": true}}}
	svc := newTestService(cards, clients, dir, nil)

	got, err := svc.BuildReport(context.Background(), "333", &own)
	require.NoError(t, err)

	labels := map[string]string{}
	for _, c := range got.ActiveCards {
		labels[c.ReferenceID] = c.CompanyLabel
	}
	assert.Equal(t, contracts.CompanyLabelOwn, labels["TARJ-A"])
	assert.Equal(t, contracts.CompanyLabelExternal, labels["TARJ-B"])
	assert.Equal(t, contracts.CompanyLabelOwn, labels["TARJ-C"], "legacy card labeled via collector membership")

	histLabels := map[string]string{}
	for _, h := range got.CompactHistory {
		histLabels[h.ReferenceID] = h.CompanyLabel
	}
	assert.Equal(t, contracts.CompanyLabelOwn, histLabels["H-1"])
	assert.Equal(t, contracts.CompanyLabelExternal, histLabels["H-2"])
}

func TestSplitHistory(t *testing.T) {
	history := []contracts.CreditHistoryItem{
		{ReferenceID: "old", StartDate: "2022-01-10"},
		{ReferenceID: "newest", StartDate: "2025-06-01"},
		{ReferenceID: "mid", StartDate: "2024-03-15"},
		{ReferenceID: "older", StartDate: "2023-08-20"},
		{ReferenceID: "oldest", StartDate: "2021-11-05"},
	}

	recent, older := splitHistory(history)

	require.Len(t, recent, 3)
	assert.Equal(t, "newest", recent[0].ReferenceID)
	assert.Equal(t, "mid", recent[1].ReferenceID)
	assert.Equal(t, "older", recent[2].ReferenceID)
	require.Len(t, older, 2)
	assert.Equal(t, "old", older[0].ReferenceID)
	assert.Equal(t, "oldest", older[1].ReferenceID)

	// Short histories are all recent.
	recent, older = splitHistory(history[:2])
	assert.Len(t, recent, 2)
	assert.Nil(t, older)
}

func TestScoreCardsPreservesOrder(t *testing.T) {
	var cards []contracts.CardTerms
	payments := map[string][]contracts.Payment{}
	for _, code := range []string{"C-1", "C-2", "C-3", "C-4", "C-5"} {
		cards = append(cards, contracts.CardTerms{
			Code: code, StartDate: reportStart,
			Principal: 100_000, Installment: 10, Modality: "diario",
			State: contracts.CardStateActive,
		})
		payments[code] = perfectDailyPayments(code, 10_000, 5)
	}

	svc := newTestService(&fakeCardReader{payments: payments}, &fakeClientStore{}, nil, nil)

	scored, err := svc.scoreCards(context.Background(), cards, reportStart.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, scored, 5)
	for i, code := range []string{"C-1", "C-2", "C-3", "C-4", "C-5"} {
		assert.Equal(t, code, scored[i].ReferenceID)
	}
}
