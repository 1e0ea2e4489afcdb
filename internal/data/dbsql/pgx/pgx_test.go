package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestToNamedArgs(t *testing.T) {
	data := struct {
		ID      int    `db:"id"`
		Name    string // untagged
		Skipped string `db:"-"`
		hidden  string
	}{ID: 1, Name: "a", Skipped: "b", hidden: "c"}

	got, err := toNamedArgs(&data)
	if err != nil {
		t.Fatalf("toNamedArgs: %v", err)
	}

	want := pgx.NamedArgs{"id": 1, "Name": "a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("wrong args: %s", diff)
	}

	if _, err := toNamedArgs(42); err == nil {
		t.Fatal("expected error for a non struct value")
	}
}

func TestQueryString(t *testing.T) {
	const q = `
	SELECT
		id
	FROM
		audit_entries
	WHERE
		operation = @operation AND failed = @failed AND id = @missing`

	got := queryString(q, map[string]any{"operation": "Submit", "failed": true})
	want := "SELECT id FROM audit_entries WHERE operation = 'Submit' AND failed = true AND id = @missing"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMapError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", fmt.Errorf("collect: %w", pgx.ErrNoRows), ErrDBNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrDBDuplicatedEntry},
		{"other pg", &pgconn.PgError{Code: pgerrcode.UndefinedTable}, nil},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			want := tt.want
			if want == nil {
				want = tt.err
			}
			if !errors.Is(got, want) {
				t.Fatalf("got %v want %v", got, want)
			}
		})
	}
}

func TestConnString(t *testing.T) {
	got := ConnString(Config{User: "u", Password: "p@ss", Host: "db:5432", Name: "bank", DisableTLS: true})
	want := "postgres://u:p%40ss@db:5432/bank?sslmode=disable&timezone=utc"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
