package core

// EntryKind tags a ledger entry as income or expense in read projections.
type EntryKind string

const (
	EntryIncome  EntryKind = "income"
	EntryExpense EntryKind = "expense"
)

// DuesPublicLabel replaces the description of membership-dues income in the
// public projection so the payer's identity and note text are never exposed.
const DuesPublicLabel = "Iuran anggota"

// Overview totals the whole ledger.
type Overview struct {
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	Balance      Money `json:"balance"`
}

// MonthlyBucket is one month of MonthlyStats, bucketed by entry date.
type MonthlyBucket struct {
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Entry is the treasurer-facing read projection of one ledger row.
type Entry struct {
	ID          int64     `json:"id"`
	Date        Day       `json:"date"`
	Kind        EntryKind `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	MemberID    *int64    `json:"member_id,omitempty"`
	ExtraMeta   string    `json:"extra_meta,omitempty"`
}

// CategoryGroup partitions entries of one kind by category name.
type CategoryGroup struct {
	Category string  `json:"category"`
	Total    Money   `json:"total"`
	Entries  []Entry `json:"entries"`
}

// TransparencyEntry is the public-safe projection: date, category,
// description, amount and kind only. Dues descriptions are anonymized
// before this struct is built.
type TransparencyEntry struct {
	Date        Day       `json:"date"`
	Kind        EntryKind `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
}

// DuesStatus is one member's paid/unpaid state for a single day. Paid is
// defined purely by the existence of a dues income row for (member, day).
type DuesStatus struct {
	Member   Member `json:"member"`
	Paid     bool   `json:"paid"`
	IncomeID *int64 `json:"income_id,omitempty"`
	Amount   Money  `json:"amount"`
}
