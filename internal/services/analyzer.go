package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"emianalyzer/internal/cache"
	"emianalyzer/internal/core"
	"emianalyzer/internal/finance"
	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/ports"
	"emianalyzer/internal/report"
	"emianalyzer/internal/sheets"
)

// adminFanout bounds concurrent snapshot builds in admin views.
const adminFanout = 8

// AnalyzerConfig wires the optional collaborators of an AnalyzerService.
type AnalyzerConfig struct {
	// Defaults apply until an admin saves thresholds.
	Defaults core.Thresholds
	Cache    cache.Cache[*finance.Snapshot]
	Metrics  *metrics.Metrics
	Sheets   sheets.SummaryWriter
	Now      func() time.Time
}

// AnalyzerService fetches a user's records and runs the engine over them.
type AnalyzerService struct {
	store    ports.Store
	defaults core.Thresholds
	cache    cache.Cache[*finance.Snapshot]
	metrics  *metrics.Metrics
	sheets   sheets.SummaryWriter
	now      func() time.Time

	// generations guard cache.Set against builds that read their inputs
	// before an invalidation.
	genMu     sync.Mutex
	userGen   map[int64]uint64
	globalGen uint64
}

type generation struct{ global, user uint64 }

func NewAnalyzerService(store ports.Store, cfg AnalyzerConfig) *AnalyzerService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Defaults == (core.Thresholds{}) {
		cfg.Defaults = core.DefaultThresholds()
	}
	return &AnalyzerService{
		store:    store,
		defaults: cfg.Defaults,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		sheets:   cfg.Sheets,
		now:      cfg.Now,
		userGen:  map[int64]uint64{},
	}
}

// Today is the default reference date.
func (s *AnalyzerService) Today() core.Date {
	return core.DateOf(s.now())
}

// Thresholds returns the saved thresholds, or the configured defaults when
// none were saved yet.
func (s *AnalyzerService) Thresholds(ctx context.Context) (core.Thresholds, error) {
	th, err := s.store.GetThresholds(ctx)
	if errors.Is(err, ports.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return core.Thresholds{}, fmt.Errorf("load thresholds: %w", err)
	}
	return th, nil
}

// Inputs loads the five record sets of one user concurrently.
func (s *AnalyzerService) Inputs(ctx context.Context, userID int64) (finance.Inputs, error) {
	var in finance.Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		income, err := s.store.GetIncome(gctx, userID)
		in.Income = income
		return wrap("income", err)
	})
	g.Go(func() error {
		budget, err := s.store.GetBudget(gctx, userID)
		in.Budget = budget
		return wrap("budget", err)
	})
	g.Go(func() error {
		loans, err := s.store.ListLoans(gctx, userID)
		in.Loans = loans
		return wrap("loans", err)
	})
	g.Go(func() error {
		cards, err := s.store.ListCards(gctx, userID)
		in.Cards = cards
		return wrap("cards", err)
	})
	g.Go(func() error {
		entries, err := s.store.ListCardEntries(gctx, userID)
		in.Entries = entries
		return wrap("card entries", err)
	})

	if err := g.Wait(); err != nil {
		return finance.Inputs{}, err
	}
	return in, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

func snapshotKey(userID int64, ref core.Date) string {
	return fmt.Sprintf("%s%s", userPrefix(userID), ref)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

// Snapshot returns the user's position on ref. A zero ref means today.
// Unknown users yield ports.ErrNotFound.
func (s *AnalyzerService) Snapshot(ctx context.Context, userID int64, ref core.Date) (*finance.Snapshot, error) {
	if ref.IsEmpty() {
		ref = s.Today()
	}
	key := snapshotKey(userID, ref)
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			s.metrics.CacheHit()
			return snap, nil
		}
		s.metrics.CacheMiss()
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.build(ctx, userID, ref, key)
}

// FreshSnapshot recomputes the user's snapshot from the store, ignoring any
// cached copy, and caches the result.
func (s *AnalyzerService) FreshSnapshot(ctx context.Context, userID int64, ref core.Date) (*finance.Snapshot, error) {
	if ref.IsEmpty() {
		ref = s.Today()
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.build(ctx, userID, ref, snapshotKey(userID, ref))
}

func (s *AnalyzerService) generation(userID int64) generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{global: s.globalGen, user: s.userGen[userID]}
}

// storeSnapshot caches snap unless the user was invalidated after gen was read.
func (s *AnalyzerService) storeSnapshot(userID int64, key string, gen generation, snap *finance.Snapshot) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen != (generation{global: s.globalGen, user: s.userGen[userID]}) {
		return false
	}
	s.cache.Set(key, snap)
	return true
}

func (s *AnalyzerService) build(ctx context.Context, userID int64, ref core.Date, key string) (*finance.Snapshot, error) {
	start := time.Now()
	gen := s.generation(userID)
	th, err := s.Thresholds(ctx)
	if err != nil {
		return nil, err
	}
	in, err := s.Inputs(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := finance.BuildSnapshot(in, th, ref)
	elapsed := time.Since(start)
	s.metrics.ObserveSnapshot(elapsed)
	if s.cache != nil && !s.storeSnapshot(userID, key, gen, snap) {
		slog.DebugContext(ctx, "Skipped caching snapshot invalidated during build",
			log.FieldComponent, log.ComponentCache, log.FieldUserID, userID)
	}

	slog.DebugContext(ctx, "Built snapshot", log.NewFields().
		WithComponent(log.ComponentEngine).
		WithSnapshot(userID, ref.String(), snap.Ratios.EMIRatio, snap.Ratios.OverallBurdenRatio, string(snap.Health.Overall.Class)).
		ToSlice()...)
	return snap, nil
}

func (s *AnalyzerService) Charts(ctx context.Context, userID int64, ref core.Date) (report.ChartPayload, error) {
	snap, err := s.Snapshot(ctx, userID, ref)
	if err != nil {
		return report.ChartPayload{}, err
	}
	return report.BuildChartPayload(snap), nil
}

func (s *AnalyzerService) Risk(ctx context.Context, userID int64, ref core.Date) (finance.RiskProfile, error) {
	snap, err := s.Snapshot(ctx, userID, ref)
	if err != nil {
		return finance.RiskProfile{}, err
	}
	return finance.AssessRisk(snap), nil
}

func (s *AnalyzerService) Payments(ctx context.Context, userID int64, ref core.Date) (finance.PaymentPlan, error) {
	snap, err := s.Snapshot(ctx, userID, ref)
	if err != nil {
		return finance.PaymentPlan{}, err
	}
	return finance.MonthlyPayments(snap), nil
}

// Invalidate drops every cached snapshot of one user.
func (s *AnalyzerService) Invalidate(userID int64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.userGen[userID]++
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(userPrefix(userID)); n > 0 {
		slog.Debug("Invalidated cached snapshots", log.FieldComponent, log.ComponentCache, log.FieldUserID, userID, "entries", n)
	}
}

// InvalidateAll drops every cached snapshot, used when thresholds change.
func (s *AnalyzerService) InvalidateAll() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.globalGen++
	if s.cache != nil {
		s.cache.DeletePrefix("user:")
	}
}

// UserSnapshots builds a snapshot for every non-admin user, in user order.
func (s *AnalyzerService) UserSnapshots(ctx context.Context, ref core.Date) ([]report.UserSnapshot, error) {
	if ref.IsEmpty() {
		ref = s.Today()
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users = slices.DeleteFunc(users, func(u core.User) bool { return u.Admin })

	out := make([]report.UserSnapshot, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(adminFanout)
	for i, u := range users {
		g.Go(func() error {
			key := snapshotKey(u.ID, ref)
			if s.cache != nil {
				if snap, ok := s.cache.Get(key); ok {
					out[i] = report.UserSnapshot{User: u, Snapshot: snap}
					return nil
				}
			}
			snap, err := s.build(gctx, u.ID, ref, key)
			if err != nil {
				return fmt.Errorf("user %d: %w", u.ID, err)
			}
			out[i] = report.UserSnapshot{User: u, Snapshot: snap}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalyzerService) AdminRows(ctx context.Context, ref core.Date) ([]report.UserRow, error) {
	snaps, err := s.UserSnapshots(ctx, ref)
	if err != nil {
		return nil, err
	}
	return report.BuildUserRows(snaps), nil
}

func (s *AnalyzerService) AdminCharts(ctx context.Context, ref core.Date) (report.AdminCharts, error) {
	if ref.IsEmpty() {
		ref = s.Today()
	}
	snaps, err := s.UserSnapshots(ctx, ref)
	if err != nil {
		return report.AdminCharts{}, err
	}
	users := make([]core.User, 0, len(snaps))
	var loans []core.Loan
	for _, us := range snaps {
		users = append(users, us.User)
		loans = append(loans, us.Snapshot.Loans.All...)
	}
	return report.BuildAdminCharts(report.BuildUserRows(snaps), users, loans, ref), nil
}

func (s *AnalyzerService) RiskMonitor(ctx context.Context, ref core.Date, mode report.RiskMode, query string) (report.RiskMonitor, error) {
	rows, err := s.AdminRows(ctx, ref)
	if err != nil {
		return report.RiskMonitor{}, err
	}
	return report.BuildRiskMonitor(rows, mode, query), nil
}

// Export writes one admin export to w.
func (s *AnalyzerService) Export(ctx context.Context, kind report.ExportKind, w io.Writer) error {
	snaps, err := s.UserSnapshots(ctx, s.Today())
	if err != nil {
		return err
	}
	th, err := s.Thresholds(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Writing admin export", log.FieldExportKind, kind, "users", len(snaps))
	switch kind {
	case report.ExportUsers:
		return report.WriteUsersCSV(w, snaps)
	case report.ExportLoans:
		return report.WriteLoansCSV(w, snaps, th)
	case report.ExportBudgets:
		return report.WriteBudgetsCSV(w, snaps)
	case report.ExportEMIPDF:
		doc, err := report.EMIReportPDF(report.BuildUserRows(snaps), th, s.now())
		if err != nil {
			return err
		}
		_, err = w.Write(doc)
		return err
	default:
		return report.ErrUnknownExport
	}
}

// ErrSheetsDisabled is returned by ExportToSheets without a configured sheet.
var ErrSheetsDisabled = errors.New("sheets export is not configured")

// ExportToSheets appends today's admin rows to the configured sheet.
func (s *AnalyzerService) ExportToSheets(ctx context.Context) (string, error) {
	if s.sheets == nil {
		return "", ErrSheetsDisabled
	}
	rows, err := s.AdminRows(ctx, s.Today())
	if err != nil {
		return "", err
	}
	ref, err := s.sheets.AppendUserSummary(ctx, rows, s.now())
	if err != nil {
		return "", fmt.Errorf("export to sheets: %w", err)
	}
	return ref, nil
}
