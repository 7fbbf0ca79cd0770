package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel is the reporting label for transactions without a category.
const UncategorizedLabel = "Uncategorized"

// Sync states of a transaction with respect to the external ledger.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const (
	MaxBudgetNameLength   = 100
	MaxCategoryNameLength = 50
	MaxDescriptionLength  = 255
)

type (
	Date struct {
		time.Time
	}

	Budget struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	Category struct {
		ID       int64
		BudgetID int64
		Name     string
	}

	// Transaction is a single signed money movement. Positive amounts are
	// income, negative amounts are expenses.
	Transaction struct {
		ID          int64
		BudgetID    int64
		CategoryID  *int64
		Date        Date
		Description string
		Amount      decimal.Decimal
	}

	// TransactionView is the read shape consumed by reporting. Category holds
	// the category name, or "" when the transaction has none.
	TransactionView struct {
		ID          int64
		Date        Date
		Description string
		Category    string
		Amount      decimal.Decimal
	}

	// ExportRecord is a transaction joined with the names an external ledger shows.
	ExportRecord struct {
		Transaction  Transaction
		BudgetName   string
		CategoryName string
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDelta       = errors.New("invalid delta")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrNotFound           = errors.New("not found")
)

// NewDate returns the calendar date y-m-d at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	if y := d.Year(); y < MinYear || y > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

func (b Budget) Validate() error {
	return validateName(b.Name, MaxBudgetNameLength)
}

func (c Category) Validate() error {
	return validateName(c.Name, MaxCategoryNameLength)
}

func validateName(name string, max int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > max {
		return fmt.Errorf("%w: max %d characters", ErrNameTooLong, max)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, MaxDescriptionLength)
	}
	return ValidateAmount(t.Amount)
}

// Label returns the category name used for grouping.
func (v TransactionView) Label() string {
	if v.Category == "" {
		return UncategorizedLabel
	}
	return v.Category
}

// IsExpense reports whether the transaction moves money out.
func (v TransactionView) IsExpense() bool {
	return v.Amount.IsNegative()
}
