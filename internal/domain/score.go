package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidScore is returned when a submitted score is missing or not an integer
var ErrInvalidScore = errors.New("score must be an integer")

// ParseScoreBody extracts the "score" member from a JSON request body.
// Bodies that are not valid JSON objects are treated as having no score.
func ParseScoreBody(body []byte) (int64, error) {
	if !gjson.ValidBytes(body) {
		return 0, ErrInvalidScore
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return 0, ErrInvalidScore
	}
	return ParseScore(root.Get("score"))
}

// ParseScore converts a JSON value into an integer score.
//
// Integer numbers are taken as is, fractional numbers are truncated toward
// zero and strings must hold a base-10 integer. Everything else, including
// null and booleans, is rejected.
func ParseScore(v gjson.Result) (int64, error) {
	if !v.Exists() {
		return 0, ErrInvalidScore
	}

	switch v.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return 0, ErrInvalidScore
		}
		return truncate(f)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, ErrInvalidScore
		}
		return n, nil
	default:
		// null, booleans, arrays and objects are not scores
		return 0, ErrInvalidScore
	}
}

func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidScore
	}
	t := math.Trunc(f)
	// float64(math.MaxInt64) rounds up to 2^63
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, ErrInvalidScore
	}
	return int64(t), nil
}
