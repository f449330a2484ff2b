package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/naguara/naguara-pos/internal/shared"
)

// DateRange reads the inclusive "desde" and "hasta" dates of a listing as the
// half-open instant range [from, to). Missing bounds are returned as zero times.
func DateRange(r *http.Request, loc *time.Location) (time.Time, time.Time, error) {
	q := r.URL.Query()
	var from, to time.Time
	if s := q.Get("desde"); s != "" {
		d, err := shared.ParseDate(s, loc, time.Now())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = d
	}
	if s := q.Get("hasta"); s != "" {
		d, err := shared.ParseDate(s, loc, time.Now())
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		_, to = shared.DayRange(d, loc)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, shared.Validation("la fecha desde no puede ser posterior a hasta")
	}
	return from, to, nil
}

// OptionalBool parses a boolean query parameter; empty yields nil.
func OptionalBool(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, shared.Validation(name + " debe ser true o false")
	}
	return &v, nil
}

// OptionalID parses a positive id query parameter; empty yields 0.
func OptionalID(r *http.Request, name string) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation(name + " debe ser un id positivo")
	}
	return id, nil
}
