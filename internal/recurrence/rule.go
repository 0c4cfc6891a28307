// Package recurrence resolves edits to recurring events into store operations
// and expands series into occurrences.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const occurrenceLayout = "20060102T150405Z"

var (
	ErrInvalidRule         = errors.New("invalid recurrence rule")
	ErrInvalidOccurrenceID = errors.New("invalid occurrence id")
	ErrNoSuchOccurrence    = errors.New("no occurrence at that time")
)

func parseOption(rule string) (*rrule.ROption, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return opt, nil
}

func newRule(rule string, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return r, nil
}

// ValidateRule checks that rule is a parseable RRULE value.
func ValidateRule(rule string) error {
	_, err := parseOption(rule)
	return err
}

// NormalizeRule returns rule in canonical RRULE form without the "RRULE:"
// prefix.
func NormalizeRule(rule string) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// TerminateRule rewrites rule so that no occurrence starts at or after
// before. A COUNT limit is replaced by the equivalent UNTIL.
func TerminateRule(rule string, dtstart, before time.Time) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}

	until := before.Add(-time.Second).UTC()
	if opt.Count > 0 {
		opt.Dtstart = dtstart
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		if last := lastOccurrence(r); !last.IsZero() && last.Before(until) {
			until = last.UTC()
		}
		opt.Count = 0
		opt.Dtstart = time.Time{}
	}
	if opt.Until.IsZero() || until.Before(opt.Until) {
		opt.Until = until
	}
	return opt.RRuleString(), nil
}

// ContinueRule returns the rule for a new series starting at from that
// continues rule. A COUNT limit carries only the occurrences not yet used.
func ContinueRule(rule string, dtstart, from time.Time) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}
	if opt.Count > 0 {
		r, err := newRule(rule, dtstart)
		if err != nil {
			return "", err
		}
		used := len(r.Between(dtstart, from.Add(-time.Second), true))
		opt.Count = max(opt.Count-used, 1)
	}
	return opt.RRuleString(), nil
}

// FirstOccurrence returns the first start generated by rule from dtstart.
func FirstOccurrence(rule string, dtstart time.Time) (time.Time, error) {
	r, err := newRule(rule, dtstart)
	if err != nil {
		return time.Time{}, err
	}
	first := r.After(dtstart, true)
	if first.IsZero() {
		return time.Time{}, ErrNoSuchOccurrence
	}
	return first, nil
}

// IsOccurrence reports whether rule generates an occurrence at start.
func IsOccurrence(rule string, dtstart, start time.Time) (bool, error) {
	r, err := newRule(rule, dtstart)
	if err != nil {
		return false, err
	}
	return len(r.Between(start, start, true)) > 0, nil
}

func lastOccurrence(r *rrule.RRule) time.Time {
	var last time.Time
	next := r.Iterator()
	for t, ok := next(); ok; t, ok = next() {
		last = t
	}
	return last
}

// OccurrenceID encodes one occurrence of a series as a single identifier.
func OccurrenceID(seriesID string, start time.Time) string {
	return seriesID + "::" + start.UTC().Format(occurrenceLayout)
}

// SplitOccurrenceID decodes an identifier produced by OccurrenceID. A plain
// identifier yields a zero start.
func SplitOccurrenceID(id string) (string, time.Time, error) {
	seriesID, stamp, found := strings.Cut(id, "::")
	if !found {
		return id, time.Time{}, nil
	}
	if seriesID == "" {
		return "", time.Time{}, ErrInvalidOccurrenceID
	}
	start, err := time.Parse(occurrenceLayout, stamp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrInvalidOccurrenceID, id)
	}
	return seriesID, start, nil
}
