package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUnavailable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: fmt.Errorf("exec: %w", driver.ErrBadConn), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "connection failure", err: &pq.Error{Code: "08006"}, want: true},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01"}, want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "dial", err: &net.OpError{Op: "dial", Err: fmt.Errorf("refused")}, want: true},
		{name: "no rows", err: sql.ErrNoRows, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUnavailable(tc.err))
		})
	}
}
