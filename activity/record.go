package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const TimeLayout = time.RFC3339

// Timestamp returns the instant that best places the record on a timeline.
// The zero time is returned when the record carries no usable date.
func (r Record) Timestamp() time.Time {
	switch r.Kind {
	case KindPRsOpened, KindIssuesOpened:
		return deref(r.CreatedAt)
	case KindPRsMerged:
		if r.ClosedAt != nil {
			return *r.ClosedAt
		}
		return deref(r.UpdatedAt)
	case KindCommits:
		return deref(r.AuthorDate)
	default:
		return deref(r.UpdatedAt)
	}
}

// Key identifies the record for deduplication. Two records with the same key
// describe the same activity.
func (r Record) Key() string {
	if r.Kind == KindCommits {
		switch {
		case r.SHA != "":
			return string(r.Kind) + "|" + r.SHA
		case r.URL != "":
			return string(r.Kind) + "|" + r.URL
		}
		// struct field order is fixed, so the encoding is stable per record
		b, _ := json.Marshal(r)
		return string(r.Kind) + "|" + string(b)
	}
	if r.URL != "" {
		return string(r.Kind) + "|" + r.URL
	}
	return fmt.Sprintf("%s|%s:%s:%s#%d", r.Kind, r.Org, r.Kind, r.Repo, r.Number)
}

// FirstLine trims a commit message down to its subject.
func FirstLine(msg string) string {
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		return msg[:i]
	}
	return msg
}

// Row renders the record in Fields order.
func (r Record) Row() []string {
	number := ""
	if r.Number != 0 {
		number = strconv.Itoa(r.Number)
	}
	return []string{
		string(r.Kind),
		r.Org,
		r.Repo,
		number,
		r.Title,
		r.State,
		r.URL,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
		formatTime(r.ClosedAt),
		r.SHA,
		r.Message,
		formatTime(r.AuthorDate),
	}
}

// ParseRow is the inverse of Row. header maps column names to positions so
// files with reordered or extra columns still load.
func ParseRow(header map[string]int, row []string) (Record, error) {
	get := func(name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := Record{
		Kind:    Kind(get("kind")),
		Org:     get("org"),
		Repo:    get("repo"),
		Title:   get("title"),
		State:   get("state"),
		URL:     get("url"),
		SHA:     get("sha"),
		Message: get("message"),
	}
	if !rec.Kind.Valid() {
		return Record{}, fmt.Errorf("unknown kind %q", rec.Kind)
	}
	if n := get("number"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return Record{}, fmt.Errorf("number %q: %w", n, err)
		}
		rec.Number = v
	}

	var err error
	if rec.CreatedAt, err = parseTime(get("created_at")); err != nil {
		return Record{}, fmt.Errorf("created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(get("updated_at")); err != nil {
		return Record{}, fmt.Errorf("updated_at: %w", err)
	}
	if rec.ClosedAt, err = parseTime(get("closed_at")); err != nil {
		return Record{}, fmt.Errorf("closed_at: %w", err)
	}
	if rec.AuthorDate, err = parseTime(get("author_date")); err != nil {
		return Record{}, fmt.Errorf("author_date: %w", err)
	}
	return rec, nil
}

// TimePtr returns nil for the zero time so empty dates stay empty on export.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return nil, err
	}
	return TimePtr(t), nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
