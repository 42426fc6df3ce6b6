package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaType is the display kind of a post. Explicit type columns may carry
// any label, the three constants are what auto detection produces.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaCarousel MediaType = "carousel"
	MediaVideo    MediaType = "video"
)

// DefaultDateProperty is the column written to when a post has no resolved date column
const DefaultDateProperty = "Date"

// Post model with the fields the feed UI needs
type Post struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	Date         Date      `json:"date"`
	MediaUrls    []string  `json:"mediaUrls"`
	MediaType    MediaType `json:"mediaType"`
	Caption      string    `json:"caption"`
	Status       string    `json:"status,omitempty"`
	Account      string    `json:"account,omitempty"`
	SourceId     string    `json:"sourceId,omitempty"`
	Calendar     string    `json:"calendar,omitempty"`
	DateProperty string    `json:"dateProperty,omitempty"`
}

// WithDate returns a copy of the post moved to date
func (p Post) WithDate(date Date) Post {
	p.MediaUrls = append([]string(nil), p.MediaUrls...)
	p.Date = date
	return p
}

// Meta summarises an aggregation pass
type Meta struct {
	Total     int      `json:"total"`
	Accounts  []string `json:"accounts"`
	Calendars []string `json:"calendars,omitempty"`
}

// Container describes a source database, as returned by a connection test
type Container struct {
	Id    string `json:"id"`
	Title string `json:"title"`
}

// DateChange is one journaled attempt to move a post to a new date
type DateChange struct {
	Id          string    `json:"id"`
	PostId      string    `json:"postId"`
	SourceId    string    `json:"sourceId"`
	ContainerId string    `json:"containerId"`
	Property    string    `json:"property"`
	NewDate     Date      `json:"newDate"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	DateChangeOK     = "ok"
	DateChangeFailed = "error"
)

// Date is a calendar day. The zero value is not a valid date.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate returns the date for the given day at UTC midnight
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts a plain day or a full timestamp. Timestamps keep the day
// as written, their offset is not applied.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// AddDays moves the date by n days
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
