package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rtsvc/internal/smc"
)

// ReadBoot returns the boot with the given ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadBoot(ctx context.Context, id string) (Boot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, fingerprint, descriptors, slots
		FROM boots
		WHERE id = ?
	`, id)
	return scanBoot(row)
}

// LatestBoot returns the most recently written boot.
// Returns ErrNotFound if the log is empty.
func (s *Store) LatestBoot(ctx context.Context) (Boot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, fingerprint, descriptors, slots
		FROM boots
		ORDER BY ordinal DESC
		LIMIT 1
	`)
	return scanBoot(row)
}

// ListBoots returns every boot, oldest first.
func (s *Store) ListBoots(ctx context.Context) ([]Boot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, fingerprint, descriptors, slots
		FROM boots
		ORDER BY ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query boots: %w", err)
	}
	defer rows.Close()

	boots := []Boot{}
	for rows.Next() {
		b, err := scanBoot(rows)
		if err != nil {
			return nil, err
		}
		boots = append(boots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boots: %w", err)
	}
	return boots, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoot(row scanner) (Boot, error) {
	var b Boot
	err := row.Scan(&b.ID, &b.Source, &b.Fingerprint, &b.Descriptors, &b.Slots)
	if errors.Is(err, sql.ErrNoRows) {
		return Boot{}, ErrNotFound
	}
	if err != nil {
		return Boot{}, fmt.Errorf("scan boot: %w", err)
	}
	return b, nil
}

// ReadRegistrations returns a boot's registrations in catalog order.
// Returns empty slice (not nil) if there are none.
func (s *Store) ReadRegistrations(ctx context.Context, bootID string) ([]Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, start_oen, end_oen, call_type, has_init, has_handle, status, detail
		FROM registrations
		WHERE boot_id = ?
		ORDER BY idx ASC
	`, bootID)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	regs := []Registration{}
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.Index, &r.Name, &r.StartOEN, &r.EndOEN, &r.CallType,
			&r.HasInit, &r.HasHandle, &r.Status, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

// ReadCalls returns a boot's calls ordered by seq.
// Returns empty slice (not nil) if there are none.
func (s *Store) ReadCalls(ctx context.Context, bootID string) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT boot_id, seq, call_id, unit, fid, x1, x2, x3, x4, flags, resolved, descriptor, result, r0, r1, r2, r3
		FROM calls
		WHERE boot_id = ?
		ORDER BY seq ASC
	`, bootID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

func scanCall(row scanner) (Call, error) {
	var (
		c                  Call
		fid, flags, result int64
		x1, x2, x3, x4     int64
		r0, r1, r2, r3     int64
	)
	err := row.Scan(&c.BootID, &c.Seq, &c.CallID, &c.Unit, &fid,
		&x1, &x2, &x3, &x4, &flags, &c.Resolved, &c.Descriptor, &result,
		&r0, &r1, &r2, &r3)
	if err != nil {
		return Call{}, fmt.Errorf("scan call: %w", err)
	}

	c.FID = smc.FunctionID(uint32(fid))
	c.Flags = smc.Flags(uint32(flags))
	c.Args = [4]uint64{fromSQL(x1), fromSQL(x2), fromSQL(x3), fromSQL(x4)}
	c.Result = smc.Result(fromSQL(result))
	c.Regs = [4]uint64{fromSQL(r0), fromSQL(r1), fromSQL(r2), fromSQL(r3)}
	return c, nil
}

// CountCallsByDescriptor returns how many calls each descriptor served in a
// boot. Unresolved calls are counted under "".
func (s *Store) CountCallsByDescriptor(ctx context.Context, bootID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT descriptor, COUNT(*)
		FROM calls
		WHERE boot_id = ?
		GROUP BY descriptor
	`, bootID)
	if err != nil {
		return nil, fmt.Errorf("query call counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan call count: %w", err)
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call counts: %w", err)
	}
	return counts, nil
}
