package store

import (
	"context"
	"fmt"

	"github.com/roach88/rtsvc/internal/canon"
	"github.com/roach88/rtsvc/internal/monitor"
	"github.com/roach88/rtsvc/internal/rtsvc"
)

// WriteBoot records a built index under bootID: the boot row, its table
// fingerprint and one registration row per catalog descriptor. source
// names where the catalog came from.
//
// The boot is written in one transaction. Writing the same boot ID twice
// is an error.
func (s *Store) WriteBoot(ctx context.Context, bootID, source string, ix *rtsvc.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write boot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	c := ix.Catalog()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO boots (id, source, fingerprint, descriptors, slots)
		VALUES (?, ?, ?, ?, ?)
	`, bootID, source, canon.TableFingerprint(ix), c.Len(), ix.Len())
	if err != nil {
		return fmt.Errorf("write boot: insert boot: %w", err)
	}

	for i := 0; i < c.Len(); i++ {
		d := c.At(i)
		status, detail := StatusRegistered, ""
		if err := ix.InitErr(i); err != nil {
			status, detail = StatusInitFailed, err.Error()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO registrations
			(boot_id, idx, name, start_oen, end_oen, call_type, has_init, has_handle, status, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			bootID, i, d.Name, int(d.StartOEN), int(d.EndOEN), d.CallType.String(),
			d.Init != nil, d.Handle != nil, status, detail,
		)
		if err != nil {
			return fmt.Errorf("write boot: insert registration %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write boot: commit: %w", err)
	}
	return nil
}

// RecordCall implements monitor.Recorder.
// Uses ON CONFLICT DO NOTHING so re-recording the same (boot, seq) is a
// no-op. The boot must already be written.
func (s *Store) RecordCall(ctx context.Context, rec monitor.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls
		(boot_id, seq, call_id, unit, fid, x1, x2, x3, x4, flags, resolved, descriptor, result, r0, r1, r2, r3)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(boot_id, seq) DO NOTHING
	`,
		rec.BootID,
		rec.Seq,
		callID(rec),
		rec.Unit,
		int64(rec.FID),
		toSQL(rec.Args[0]), toSQL(rec.Args[1]), toSQL(rec.Args[2]), toSQL(rec.Args[3]),
		int64(rec.Flags),
		rec.Resolved,
		rec.Descriptor,
		toSQL(uint64(rec.Result)),
		toSQL(rec.Regs[0]), toSQL(rec.Regs[1]), toSQL(rec.Regs[2]), toSQL(rec.Regs[3]),
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

func callID(rec monitor.CallRecord) string {
	var args [4]string
	for i, a := range rec.Args {
		args[i] = fmt.Sprintf("%#x", a)
	}
	return canon.CallID(rec.BootID, rec.Seq, uint32(rec.FID), args)
}

// toSQL stores a register value as the int64 with the same bits.
func toSQL(v uint64) int64 {
	return int64(v)
}

// fromSQL reverses toSQL.
func fromSQL(v int64) uint64 {
	return uint64(v)
}
