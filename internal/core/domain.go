// Package core holds the expense tracker's domain model: entries, the fixed
// category set and exact decimal money.
//
// Amounts never go through float64, so adding and then removing an entry
// restores every total exactly.
package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxNameLength = 200

type (
	// Entry is a single recorded expense.
	Entry struct {
		ID       int64
		Name     string
		Category Category
		Amount   Money
	}

	// Draft holds the user-supplied fields of an entry before it gets an id.
	Draft struct {
		Name     string
		Category Category
		Amount   Money
	}
)

var (
	// ErrInvalidEntry is the umbrella for every rejected add. The specific
	// cause is wrapped alongside it.
	ErrInvalidEntry    = errors.New("invalid entry")
	ErrEmptyName       = errors.New("empty expense name")
	ErrNameTooLong     = fmt.Errorf("expense name too long (max %d characters)", MaxNameLength)
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("negative amount")
)

// invalid joins the umbrella error with the specific cause so callers can
// match either with errors.Is.
func invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidEntry, cause)
}

func (d Draft) Validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return invalid(ErrEmptyName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return invalid(ErrNameTooLong)
	}
	if !d.Category.IsValid() {
		return invalid(fmt.Errorf("%w %q", ErrUnknownCategory, string(d.Category)))
	}
	if err := d.Amount.Validate(); err != nil {
		return invalid(err)
	}
	return nil
}

// Normalized returns the draft with surrounding whitespace removed from the name.
func (d Draft) Normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	return d
}
