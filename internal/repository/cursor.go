package repository

import (
	"github.com/jackc/pgx/v5"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// DonorCursor is a finite, one-shot sequence of donors. Callers must Close it.
type DonorCursor interface {
	Next() bool
	Donor() *domain.Donor
	Err() error
	Close()
}

// Collect drains the cursor and closes it.
func Collect(cur DonorCursor) ([]domain.Donor, error) {
	defer cur.Close()
	var out []domain.Donor
	for cur.Next() {
		out = append(out, *cur.Donor())
	}
	return out, cur.Err()
}

type sliceCursor struct {
	donors []domain.Donor
	pos    int
	closed bool
}

// NewSliceCursor wraps an already materialized page of donors.
func NewSliceCursor(donors []domain.Donor) DonorCursor {
	return &sliceCursor{donors: donors, pos: -1}
}

func (c *sliceCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.donors) {
		c.closed = true
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Donor() *domain.Donor {
	if c.pos < 0 || c.pos >= len(c.donors) {
		return nil
	}
	donor := c.donors[c.pos]
	return &donor
}

func (c *sliceCursor) Err() error {
	return nil
}

func (c *sliceCursor) Close() {
	c.closed = true
}

// rowsCursor streams donors straight from a pgx result set.
type rowsCursor struct {
	rows    pgx.Rows
	current domain.Donor
	err     error
}

func (c *rowsCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	donor, err := scanDonor(c.rows)
	if err != nil {
		c.err = classify(err)
		c.rows.Close()
		return false
	}
	c.current = *donor
	return true
}

func (c *rowsCursor) Donor() *domain.Donor {
	donor := c.current
	return &donor
}

func (c *rowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (c *rowsCursor) Close() {
	c.rows.Close()
}
