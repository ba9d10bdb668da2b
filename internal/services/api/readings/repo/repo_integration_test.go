//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	perr "meterbox/internal/platform/errors"
	"meterbox/internal/platform/store"

	"meterbox/internal/services/api/readings/domain"

	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func openStore(t *testing.T, ctx context.Context, dsn string) *store.Store {
	t.Helper()

	st, err := store.Open(ctx, store.Config{
		AppName: "meterbox-repo-integration",
		PG: store.PGConfig{
			Enabled:  true,
			URL:      dsn,
			MaxConns: 4,
		},
	})
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	ddl, err := os.ReadFile("../../../../../migrations/0001_readings.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := st.PG.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}
	return st
}

func reading(customer string, kind domain.Kind, takenAt time.Time) domain.Reading {
	id := uuid.New()
	return domain.Reading{
		ID:           id,
		CustomerCode: customer,
		Kind:         kind,
		TakenAt:      takenAt,
		ImageURL:     "/files/" + id.String() + ".png",
		Value:        1234,
	}
}

func TestRepo_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st := openStore(t, ctx, dsn)
	r := NewPG().Bind(st.PG)

	aug := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	first := reading("CUST-001", domain.KindWater, aug)
	if err := r.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("unique month index rejects a second reading", func(t *testing.T) {
		dup := reading("CUST-001", domain.KindWater, aug.AddDate(0, 0, 10))
		err := r.Insert(ctx, dup)
		if !perr.IsCode(err, perr.ErrorCodeDoubleReport) {
			t.Fatalf("err = %v, want double report", err)
		}
	})

	t.Run("same month different kind or customer is fine", func(t *testing.T) {
		if err := r.Insert(ctx, reading("CUST-001", domain.KindGas, aug)); err != nil {
			t.Fatalf("gas insert: %v", err)
		}
		if err := r.Insert(ctx, reading("CUST-002", domain.KindWater, aug)); err != nil {
			t.Fatalf("other customer insert: %v", err)
		}
	})

	t.Run("exists in month honors the window bounds", func(t *testing.T) {
		from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

		got, err := r.ExistsInMonth(ctx, "CUST-001", domain.KindWater, from, to)
		if err != nil || !got {
			t.Fatalf("august: got=%v err=%v, want true", got, err)
		}

		got, err = r.ExistsInMonth(ctx, "CUST-001", domain.KindWater, to, to.AddDate(0, 1, 0))
		if err != nil || got {
			t.Fatalf("september: got=%v err=%v, want false", got, err)
		}
	})

	t.Run("confirm transitions exactly once", func(t *testing.T) {
		n, err := r.ConfirmValue(ctx, first.ID, 1250)
		if err != nil || n != 1 {
			t.Fatalf("first confirm: n=%d err=%v", n, err)
		}
		n, err = r.ConfirmValue(ctx, first.ID, 9999)
		if err != nil || n != 0 {
			t.Fatalf("second confirm: n=%d err=%v", n, err)
		}

		confirmed, err := r.Confirmed(ctx, first.ID)
		if err != nil || !confirmed {
			t.Fatalf("confirmed lookup: got=%v err=%v", confirmed, err)
		}
	})

	t.Run("confirmed lookup misses unknown ids", func(t *testing.T) {
		_, err := r.Confirmed(ctx, uuid.New())
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("err = %v, want not found", err)
		}
	})

	t.Run("list orders by capture time and filters by kind", func(t *testing.T) {
		sep := reading("CUST-001", domain.KindWater, aug.AddDate(0, 1, 0))
		if err := r.Insert(ctx, sep); err != nil {
			t.Fatalf("september insert: %v", err)
		}

		all, err := r.ListByCustomer(ctx, "CUST-001", "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("len = %d, want 3", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].TakenAt.Before(all[i-1].TakenAt) {
				t.Fatal("rows out of order")
			}
		}

		water, err := r.ListByCustomer(ctx, "CUST-001", domain.KindWater)
		if err != nil {
			t.Fatalf("filtered list: %v", err)
		}
		if len(water) != 2 {
			t.Fatalf("water len = %d, want 2", len(water))
		}
		for _, row := range water {
			if row.Kind != domain.KindWater {
				t.Fatalf("unexpected kind %s", row.Kind)
			}
		}
	})
}
