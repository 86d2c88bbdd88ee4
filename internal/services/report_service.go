package services

import (
	"context"
	"sort"

	"kas/internal/core"
	"kas/internal/members"
	"kas/internal/sheets"
	"kas/internal/storage"
)

// ReportService builds the read projections: treasurer reports, the
// anonymized public feed, and the dues coverage view.
type ReportService struct {
	storage      *storage.Repository
	members      members.Directory
	publisher    sheets.Publisher
	duesCategory string
}

func NewReportService(storage *storage.Repository, directory members.Directory, publisher sheets.Publisher, duesCategory string) *ReportService {
	return &ReportService{
		storage:      storage,
		members:      directory,
		publisher:    publisher,
		duesCategory: duesCategory,
	}
}

func (s *ReportService) Overview(ctx context.Context) (core.Overview, error) {
	return s.storage.Overview(ctx)
}

func (s *ReportService) MonthlyStats(ctx context.Context, year int) ([]core.MonthlyBucket, error) {
	if year < 1 {
		return nil, core.Validationf("year must be positive, got %d", year)
	}
	return s.storage.MonthlyStats(ctx, year)
}

// GroupedByCategory partitions one kind of entries by category name. The
// public view anonymizes dues: the description becomes a fixed label and the
// payer's identity and metadata are stripped.
func (s *ReportService) GroupedByCategory(ctx context.Context, kind core.EntryKind, date *core.Day, public bool) ([]core.CategoryGroup, error) {
	entries, err := s.storage.EntriesByKind(ctx, kind, date)
	if err != nil {
		return nil, err
	}
	if public {
		for i := range entries {
			s.anonymize(&entries[i])
		}
	}

	index := map[string]int{}
	var groups []core.CategoryGroup
	for _, e := range entries {
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, core.CategoryGroup{Category: e.Category})
		}
		groups[i].Total += e.Amount
		groups[i].Entries = append(groups[i].Entries, e)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups, nil
}

// anonymize scrubs a dues entry in place for public consumption.
func (s *ReportService) anonymize(e *core.Entry) {
	if e.Kind == core.EntryIncome && e.Category == s.duesCategory {
		e.Description = core.DuesPublicLabel
	}
	e.MemberID = nil
	e.ExtraMeta = ""
}

// Transparency is the public-safe projection of the whole ledger (or one
// day): every entry reduced to date, kind, category, description and amount,
// with dues anonymized. Empty ledgers yield an empty feed, never an error.
func (s *ReportService) Transparency(ctx context.Context, date *core.Day) ([]core.TransparencyEntry, error) {
	incomes, err := s.storage.EntriesByKind(ctx, core.EntryIncome, date)
	if err != nil {
		return nil, err
	}
	expenses, err := s.storage.EntriesByKind(ctx, core.EntryExpense, date)
	if err != nil {
		return nil, err
	}

	entries := append(incomes, expenses...)
	for i := range entries {
		s.anonymize(&entries[i])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date.Time)
	})

	out := make([]core.TransparencyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, core.TransparencyEntry{
			Date:        e.Date,
			Kind:        e.Kind,
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount,
		})
	}
	return out, nil
}

// PublishTransparency pushes the current feed to the configured sheet. The
// ledger is never touched; a publish failure leaves no partial state behind
// worth cleaning up.
func (s *ReportService) PublishTransparency(ctx context.Context, date *core.Day) (int, error) {
	if s.publisher == nil {
		return 0, core.Validationf("no transparency publisher configured")
	}

	entries, err := s.Transparency(ctx, date)
	if err != nil {
		return 0, err
	}
	if err := s.publisher.Publish(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// UnpaidMembers lists directory members with no dues income row on the given
// day. Paid is row existence, nothing else.
func (s *ReportService) UnpaidMembers(ctx context.Context, date core.Day) ([]core.Member, error) {
	duesCat, err := s.storage.FindCategory(ctx, core.KindIncome, s.duesCategory)
	if err != nil {
		return nil, err
	}

	roster, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}

	paidRows, err := s.storage.DuesIncomes(ctx, duesCat.ID, date)
	if err != nil {
		return nil, err
	}
	paid := map[int64]bool{}
	for _, in := range paidRows {
		if in.MemberID != nil {
			paid[*in.MemberID] = true
		}
	}

	var unpaid []core.Member
	for _, m := range roster {
		if !paid[m.ID] {
			unpaid = append(unpaid, m)
		}
	}
	return unpaid, nil
}
