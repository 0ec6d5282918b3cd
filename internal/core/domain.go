package core

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoleStandard   Role = "user"
	RolePrivileged Role = "admin"
)

const (
	dateLayout           = "2006-01-02"
	maxDescriptionLength = 200
	maxCategoryLength    = 50
)

// DefaultCategories is the category set every fresh store is seeded with.
var DefaultCategories = []Category{"Food", "Transport", "Rent", "Shopping", "Bills", "Other"}

type (
	Role string

	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Role         Role
		CreatedAt    time.Time
	}

	// Principal is the authenticated actor of a single request.
	Principal struct {
		UserID int64
		Role   Role
	}

	Expense struct {
		ID          int64
		UserID      int64
		Owner       string // Owner username, filled on listings
		Amount      Money
		Category    Category
		Description string
		Date        Date
		Essential   bool
	}

	Budget struct {
		UserID    int64
		Period    Period
		Amount    Money
		UpdatedAt time.Time
	}

	// CategorySet is the recognized category set at a point in time.
	CategorySet map[Category]struct{}
)

func (r Role) IsValid() bool {
	return r == RoleStandard || r == RolePrivileged
}

func (r Role) String() string {
	return string(r)
}

func (p Principal) IsPrivileged() bool {
	return p.Role == RolePrivileged
}

// NewCategorySet builds a set from the given names, dropping blanks.
func NewCategorySet(cats ...Category) CategorySet {
	set := make(CategorySet, len(cats))
	for _, c := range cats {
		c = Category(strings.TrimSpace(string(c)))
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return set
}

// ParseCategory trims and checks a new category name.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "category", Reason: "required"}
	}
	if utf8.RuneCountInString(name) > maxCategoryLength {
		return "", &ValidationError{Field: "category", Reason: "too long (max 50 characters)"}
	}
	return Category(name), nil
}

func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date. Overflowing values such as
// 2025-02-30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is unset
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Compare orders dates by calendar day.
func (d Date) Compare(other Date) int {
	return d.Time.Compare(other.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}

// Add and Sub clamp at the int64 bounds, so a total never changes sign by
// wrapping.
func (m Money) Add(other Money) Money {
	return Money{Cents: addCents(m.Cents, other.Cents)}
}

func (m Money) Sub(other Money) Money {
	if other.Cents == math.MinInt64 {
		return Money{Cents: addCents(addCents(m.Cents, math.MaxInt64), 1)}
	}
	return Money{Cents: addCents(m.Cents, -other.Cents)}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if m.Cents > MaxCents {
		return tooLarge()
	}
	return nil
}

// Validate checks an expense against the recognized category set.
func (e Expense) Validate(categories CategorySet) error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !categories.Contains(e.Category) {
		return &ValidationError{Field: "category", Reason: "unrecognized category " + string(e.Category)}
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	return nil
}
