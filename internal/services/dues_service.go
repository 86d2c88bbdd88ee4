package services

import (
	"context"
	"fmt"

	"kas/internal/auth"
	"kas/internal/core"
	"kas/internal/members"
	"kas/internal/storage"
)

// DuesService runs the periodic membership-dues collection. Payment state is
// never stored separately: a member has paid for a day exactly when a dues
// income row exists for (member, day), so status is re-derived on every call
// and Undo is just deleting that row.
type DuesService struct {
	storage      *storage.Repository
	members      members.Directory
	events       EventPublisher
	duesCategory string
}

func NewDuesService(storage *storage.Repository, directory members.Directory, events EventPublisher, duesCategory string) *DuesService {
	return &DuesService{
		storage:      storage,
		members:      directory,
		events:       events,
		duesCategory: duesCategory,
	}
}

func (s *DuesService) duesCategoryID(ctx context.Context) (int64, error) {
	cat, err := s.storage.FindCategory(ctx, core.KindIncome, s.duesCategory)
	if err != nil {
		return 0, err
	}
	return cat.ID, nil
}

// Status reports every directory member's paid/unpaid state for one day.
func (s *DuesService) Status(ctx context.Context, date core.Day) ([]core.DuesStatus, error) {
	if err := date.Validate(); err != nil {
		return nil, core.Validationf("dues date: %v", err)
	}

	catID, err := s.duesCategoryID(ctx)
	if err != nil {
		return nil, err
	}

	roster, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	rows, err := s.storage.DuesIncomes(ctx, catID, date)
	if err != nil {
		return nil, err
	}
	byMember := map[int64]core.Income{}
	for _, in := range rows {
		if in.MemberID != nil {
			byMember[*in.MemberID] = in
		}
	}

	out := make([]core.DuesStatus, 0, len(roster))
	for _, m := range roster {
		st := core.DuesStatus{Member: m}
		if in, ok := byMember[m.ID]; ok {
			st.Paid = true
			st.IncomeID = &in.ID
			st.Amount = in.Amount
		}
		out = append(out, st)
	}
	return out, nil
}

// Pay records one member's dues for one day as a regular income row. Paying
// twice for the same (member, day) is a conflict.
func (s *DuesService) Pay(ctx context.Context, date core.Day, memberID int64, amount core.Money, methodID int64) (core.Income, error) {
	cap, err := auth.Treasurer(ctx)
	if err != nil {
		return core.Income{}, err
	}
	if err := date.Validate(); err != nil {
		return core.Income{}, core.Validationf("dues date: %v", err)
	}
	if amount <= 0 {
		return core.Income{}, core.Validationf("dues amount must be positive, got %d", amount)
	}
	if methodID < 1 {
		return core.Income{}, core.Validationf("payment method is required")
	}
	method, err := s.storage.GetPaymentMethod(ctx, methodID)
	if err != nil {
		return core.Income{}, err
	}
	if !method.Active {
		return core.Income{}, core.Validationf("payment method %q is inactive", method.Name)
	}

	member, err := s.findMember(ctx, memberID)
	if err != nil {
		return core.Income{}, err
	}

	catID, err := s.duesCategoryID(ctx)
	if err != nil {
		return core.Income{}, err
	}

	existing, err := s.storage.DuesIncomes(ctx, catID, date)
	if err != nil {
		return core.Income{}, err
	}
	for _, in := range existing {
		if in.MemberID != nil && *in.MemberID == memberID {
			return core.Income{}, core.Conflictf("member %q already paid dues for %s", member.Name, date)
		}
	}

	in, err := s.storage.CreateIncome(ctx, core.Income{
		Date:            date,
		Amount:          amount,
		CategoryID:      catID,
		PaymentMethodID: methodID,
		Description:     fmt.Sprintf("Iuran %s", member.Name),
		MemberID:        &memberID,
		CreatedBy:       cap.Actor,
	})
	if err != nil {
		return core.Income{}, err
	}

	publishEvent(ctx, s.events, "income", "created", in.ID)
	return in, nil
}

// Undo reverses a dues payment by deleting its income row. Only dues rows may
// be undone through here.
func (s *DuesService) Undo(ctx context.Context, incomeID int64) error {
	if _, err := auth.Treasurer(ctx); err != nil {
		return err
	}

	in, err := s.storage.GetIncome(ctx, incomeID)
	if err != nil {
		return err
	}

	catID, err := s.duesCategoryID(ctx)
	if err != nil {
		return err
	}
	if in.CategoryID != catID {
		return core.Validationf("income %d is not a dues payment", incomeID)
	}

	if err := s.storage.DeleteIncome(ctx, incomeID); err != nil {
		return err
	}

	publishEvent(ctx, s.events, "income", "deleted", incomeID)
	return nil
}

func (s *DuesService) findMember(ctx context.Context, memberID int64) (core.Member, error) {
	roster, err := s.members.List(ctx)
	if err != nil {
		return core.Member{}, fmt.Errorf("list members: %w", err)
	}
	for _, m := range roster {
		if m.ID == memberID {
			return m, nil
		}
	}
	return core.Member{}, core.NotFoundf("member %d", memberID)
}
