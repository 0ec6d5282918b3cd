package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	"ledger/internal/filter"
)

const maxBodyBytes = 1 << 20

// ParseCriteria reads the listing filter from query parameters. Malformed
// values are validation errors; well-formed values that match nothing are
// not.
func ParseCriteria(q url.Values) (filter.Criteria, error) {
	var c filter.Criteria

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c.Category = core.Category(v)
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return filter.Criteria{}, &core.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD"}
		}
		c.From = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return filter.Criteria{}, &core.ValidationError{Field: "to", Reason: "must be YYYY-MM-DD"}
		}
		c.To = d
	}
	if v := strings.TrimSpace(q.Get("essential")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter.Criteria{}, &core.ValidationError{Field: "essential", Reason: "must be true or false"}
		}
		c.Essential = &b
	}
	if v := strings.TrimSpace(q.Get("user_id")); v != "" {
		id, err := parseID(v)
		if err != nil {
			return filter.Criteria{}, &core.ValidationError{Field: "user_id", Reason: err.Error()}
		}
		c.UserID = &id
	}
	return c, nil
}

// ParsePeriodParams reads {year} and {month} from the route.
func ParsePeriodParams(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return core.Period{}, &core.ValidationError{Field: "year", Reason: "must be a number"}
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return core.Period{}, &core.ValidationError{Field: "month", Reason: "must be a number"}
	}
	return core.NewPeriod(year, month)
}

// ParseIDParam reads a positive integer route parameter.
func ParseIDParam(r *http.Request, name string) (int64, error) {
	id, err := parseID(chi.URLParam(r, name))
	if err != nil {
		return 0, &core.ValidationError{Field: name, Reason: err.Error()}
	}
	return id, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return id, nil
}

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Reason: describeDecodeError(err)}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &core.ValidationError{Field: "body", Reason: "must contain a single JSON object"}
	}
	return nil
}

func describeDecodeError(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "too large"
	case errors.Is(err, io.EOF):
		return "is empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return strings.TrimPrefix(err.Error(), "json: ")
	}
	return "malformed JSON"
}

// Decimal accepts an amount either as a JSON string ("20.50", "20,50") or
// as a JSON number.
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = Decimal(n.String())
	return nil
}

// Money parses the amount into cents.
func (d Decimal) Money() (core.Money, error) {
	return core.ParseMoney(string(d))
}

// ExpenseRequest is the body of POST /expenses and PUT /expenses/{id}.
type ExpenseRequest struct {
	Amount      Decimal `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Essential   bool    `json:"essential"`
}

// Expense converts the request into a domain draft.
func (req ExpenseRequest) Expense() (core.Expense, error) {
	amount, err := req.Amount.Money()
	if err != nil {
		return core.Expense{}, err
	}
	var date core.Date
	if s := strings.TrimSpace(req.Date); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.Expense{}, err
		}
	}
	return core.Expense{
		Amount:      amount,
		Category:    core.Category(strings.TrimSpace(req.Category)),
		Description: sanitizeInput(req.Description),
		Date:        date,
		Essential:   req.Essential,
	}, nil
}

type BudgetRequest struct {
	Amount Decimal `json:"amount"`
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
