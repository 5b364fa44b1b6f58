// internal/catalog/domain.go
package catalog

import (
	"encoding/json"
	"time"
)

// DateLayout is how due dates and publication months are rendered.
const DateLayout = "2006-01-02"

// Format identifies the kind of catalogue item.
type Format int

const (
	FormatFiction Format = iota + 1
	FormatNonFiction
	FormatMagazine
	FormatMovie
	FormatVideoGame
)

// String returns the display name of the format.
func (f Format) String() string {
	switch f {
	case FormatFiction:
		return "Fiction Book"
	case FormatNonFiction:
		return "Non-Fiction Book"
	case FormatMagazine:
		return "Magazine"
	case FormatMovie:
		return "Movie"
	case FormatVideoGame:
		return "Video Game"
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Details carries the descriptive fields that only make sense for one format.
type Details interface {
	Format() Format
	isDetails()
}

// FictionDetails has no format-specific fields.
type FictionDetails struct{}

// NonFictionDetails carries the Dewey decimal classification.
type NonFictionDetails struct {
	Dewey string
}

// MagazineDetails identifies a single issue.
type MagazineDetails struct {
	Issue   string
	PubDate string // YYYY-MM
}

// MovieDetails carries genre and audience rating.
type MovieDetails struct {
	Genre  string
	Rating string
}

// VideoGameDetails carries genre and audience rating.
type VideoGameDetails struct {
	Genre  string
	Rating string
}

func (FictionDetails) Format() Format    { return FormatFiction }
func (NonFictionDetails) Format() Format { return FormatNonFiction }
func (MagazineDetails) Format() Format   { return FormatMagazine }
func (MovieDetails) Format() Format      { return FormatMovie }
func (VideoGameDetails) Format() Format  { return FormatVideoGame }

func (FictionDetails) isDetails()    {}
func (NonFictionDetails) isDetails() {}
func (MagazineDetails) isDetails()   {}
func (MovieDetails) isDetails()      {}
func (VideoGameDetails) isDetails()  {}

// Status tracks who holds an item. A nil Borrower means the item is on the shelf;
// Borrower and DueDate are always set or cleared together.
type Status struct {
	Borrower *string
	DueDate  *time.Time
}

// Available reports whether the item can be borrowed.
func (s Status) Available() bool {
	return s.Borrower == nil
}

// CheckOut records a loan to borrower due on the given date.
func (s *Status) CheckOut(borrower string, due time.Time) {
	s.Borrower = &borrower
	s.DueDate = &due
}

// CheckIn puts the item back on the shelf.
func (s *Status) CheckIn() {
	s.Borrower = nil
	s.DueDate = nil
}

// BorrowedBy reports whether the item is currently lent to name.
func (s Status) BorrowedBy(name string) bool {
	return s.Borrower != nil && *s.Borrower == name
}

// Item is a single catalogue entry.
type Item struct {
	ID      int
	Title   string
	Creator string // author, director, studio or editorial board
	Details Details
	Status  Status
	Holds   HoldQueue
	Version int // number of journalled circulation events
}

// Format returns the format implied by the item's details.
func (it Item) Format() Format {
	if it.Details == nil {
		return FormatFiction
	}
	return it.Details.Format()
}

// Clone returns a copy that shares no mutable state with it.
func (it Item) Clone() Item {
	out := it
	if it.Status.Borrower != nil {
		b := *it.Status.Borrower
		out.Status.Borrower = &b
	}
	if it.Status.DueDate != nil {
		d := *it.Status.DueDate
		out.Status.DueDate = &d
	}
	out.Holds = it.Holds.Clone()
	return out
}

// AvailabilityText renders the status the way the desk displays it.
func (it Item) AvailabilityText() string {
	if it.Status.Available() {
		return "Available"
	}
	if it.Status.DueDate == nil {
		return "Out (due -)"
	}
	return "Out (due " + it.Status.DueDate.Format(DateLayout) + ")"
}

// DaysRemaining returns the whole days from now until the due date.
// ok is false when the item is not on loan.
func (it Item) DaysRemaining(now time.Time) (days int, ok bool) {
	if it.Status.DueDate == nil {
		return 0, false
	}
	return daysBetween(now, *it.Status.DueDate), true
}

func daysBetween(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

type itemJSON struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Creator      string  `json:"creator"`
	Format       Format  `json:"format"`
	Available    bool    `json:"available"`
	Availability string  `json:"availability"`
	Borrower     *string `json:"borrower,omitempty"`
	DueDate      string  `json:"due_date,omitempty"`
	HoldCount    int     `json:"hold_count"`
	Dewey        string  `json:"dewey,omitempty"`
	Issue        string  `json:"issue,omitempty"`
	PubDate      string  `json:"pub_date,omitempty"`
	Genre        string  `json:"genre,omitempty"`
	Rating       string  `json:"rating,omitempty"`
}

// MarshalJSON flattens the format details so only the fields meaningful for
// the item's format appear.
func (it Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		ID:           it.ID,
		Title:        it.Title,
		Creator:      it.Creator,
		Format:       it.Format(),
		Available:    it.Status.Available(),
		Availability: it.AvailabilityText(),
		Borrower:     it.Status.Borrower,
		HoldCount:    it.Holds.Len(),
	}
	if it.Status.DueDate != nil {
		out.DueDate = it.Status.DueDate.Format(DateLayout)
	}

	switch d := it.Details.(type) {
	case NonFictionDetails:
		out.Dewey = d.Dewey
	case MagazineDetails:
		out.Issue = d.Issue
		out.PubDate = d.PubDate
	case MovieDetails:
		out.Genre = d.Genre
		out.Rating = d.Rating
	case VideoGameDetails:
		out.Genre = d.Genre
		out.Rating = d.Rating
	}

	return json.Marshal(out)
}
