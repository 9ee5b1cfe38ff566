package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON object into dst. Unknown fields and trailing data
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// Amount is a JSON amount given either as a string or a number. The raw text
// is kept so parsing goes through the same rules as every other surface.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = Amount(n.String())
	return nil
}

// Positive parses the amount as a strictly positive value.
func (a Amount) Positive() (decimal.Decimal, error) { return core.ParseAmount(string(a)) }

// Signed parses a non-zero relative adjustment.
func (a Amount) Signed() (decimal.Decimal, error) { return core.ParseSignedAmount(string(a)) }

// Balance parses any amount, zero and negatives included.
func (a Amount) Balance() (decimal.Decimal, error) { return core.ParseBalance(string(a)) }

// OptionalPositive parses the amount when present.
func (a Amount) OptionalPositive() (decimal.NullDecimal, error) {
	if strings.TrimSpace(string(a)) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := a.Positive()
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// parseMonthQuery reads ?month= as YYYY-MM or a three-letter month name.
func parseMonthQuery(r *http.Request, now time.Time) (core.Month, error) {
	return core.ParseMonth(r.URL.Query().Get("month"), now)
}

// parseLimitQuery reads ?limit=, falling back to def when absent.
func parseLimitQuery(r *http.Request, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, &core.ValidationError{Field: "limit", Value: v, Reason: fmt.Sprintf("must be between 1 and %d", max)}
	}
	return n, nil
}

// parseIDPath reads a positive integer path value.
func parseIDPath(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: name, Value: v, Reason: "must be a positive integer"}
	}
	return id, nil
}

// wantsText reports whether the caller asked for the rendered text form.
func wantsText(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "text")
}
