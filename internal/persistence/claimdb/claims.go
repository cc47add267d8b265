package claimdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"claimviz.ai/internal/sim/claims"
	"claimviz.ai/internal/sim/geom"
)

var (
	ErrNotFound   = errors.New("claim not found")
	ErrInvalid    = errors.New("invalid claim")
	errNestedSubs = fmt.Errorf("%w: subdivisions cannot have subdivisions", ErrInvalid)
)

// UpsertClaim stores a top-level claim together with its subdivisions,
// replacing any subdivisions stored for it before.
func (s *Store) UpsertClaim(ctx context.Context, c *claims.Claim) error {
	if err := validate(c); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT parent_id FROM claims WHERE id=?`, c.ID).Scan(&parent)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case parent.Valid:
		return fmt.Errorf("%w: %s is a subdivision of %s", ErrInvalid, c.ID, parent.String)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE parent_id=?`, c.ID); err != nil {
		return err
	}
	if err := writeClaim(ctx, tx, c, ""); err != nil {
		return err
	}
	for _, ch := range c.Children {
		if err := writeClaim(ctx, tx, ch, c.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func validate(c *claims.Claim) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if c.World == "" {
		return fmt.Errorf("%w: missing world", ErrInvalid)
	}
	if c.Parent != nil {
		return fmt.Errorf("%w: store the top-level claim %s instead", ErrInvalid, c.Parent.ID)
	}
	seen := map[string]bool{c.ID: true}
	for _, ch := range c.Children {
		if ch == nil || ch.ID == "" {
			return fmt.Errorf("%w: subdivision without id", ErrInvalid)
		}
		if seen[ch.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalid, ch.ID)
		}
		seen[ch.ID] = true
		if len(ch.Children) > 0 {
			return errNestedSubs
		}
		if err := validGrants(ch); err != nil {
			return err
		}
	}
	return validGrants(c)
}

func validGrants(c *claims.Claim) error {
	for _, p := range c.Trusted {
		if !claims.ValidPermission(p) {
			return fmt.Errorf("%w: permission %q", ErrInvalid, p)
		}
	}
	return nil
}

func writeClaim(ctx context.Context, tx *sql.Tx, c *claims.Claim, parentID string) error {
	flags, err := json.Marshal(c.Flags)
	if err != nil {
		return err
	}
	var parent any
	if parentID != "" {
		parent = parentID
	}
	world := c.World
	if world == "" && c.Parent != nil {
		world = c.Parent.World
	}
	a := c.Area
	_, err = tx.ExecContext(ctx, `INSERT INTO claims(id,parent_id,world,owner,admin,min_x,min_y,min_z,max_x,max_y,max_z,flags_json,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(id) DO UPDATE SET
			parent_id=excluded.parent_id, world=excluded.world, owner=excluded.owner, admin=excluded.admin,
			min_x=excluded.min_x, min_y=excluded.min_y, min_z=excluded.min_z,
			max_x=excluded.max_x, max_y=excluded.max_y, max_z=excluded.max_z,
			flags_json=excluded.flags_json, updated_at=excluded.updated_at`,
		c.ID, parent, world, c.Owner, boolInt(c.Admin),
		a.Min.X, a.Min.Y, a.Min.Z, a.Max.X, a.Max.Y, a.Max.Z, string(flags))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_trust WHERE claim_id=?`, c.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claim_bans WHERE claim_id=?`, c.ID); err != nil {
		return err
	}
	for viewer, p := range c.Trusted {
		if _, err := tx.ExecContext(ctx, `INSERT INTO claim_trust(claim_id,viewer,permission) VALUES(?,?,?)`, c.ID, viewer, string(p)); err != nil {
			return err
		}
	}
	for viewer, banned := range c.Banned {
		if !banned {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO claim_bans(claim_id,viewer) VALUES(?,?)`, c.ID, viewer); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetClaim loads a claim by id. A subdivision comes back attached to its
// parent, with its siblings.
func (s *Store) GetClaim(ctx context.Context, id string) (*claims.Claim, error) {
	var parent sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT parent_id FROM claims WHERE id=?`, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !parent.Valid {
		return s.loadTree(ctx, id)
	}
	top, err := s.loadTree(ctx, parent.String)
	if err != nil {
		return nil, err
	}
	for _, ch := range top.Children {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, ErrNotFound
}

// LoadAll returns every top-level claim with its subdivisions, sorted by id.
func (s *Store) LoadAll(ctx context.Context) ([]*claims.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM claims WHERE parent_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	out := make([]*claims.Claim, 0, len(ids))
	for _, id := range ids {
		c, err := s.loadTree(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DeleteClaim removes a claim; deleting a top-level claim removes its
// subdivisions too.
func (s *Store) DeleteClaim(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM claims WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const claimCols = `id,world,owner,admin,min_x,min_y,min_z,max_x,max_y,max_z,flags_json`

func scanClaim(sc interface{ Scan(...any) error }) (*claims.Claim, error) {
	var (
		c     claims.Claim
		admin int
		mn    geom.Vec3i
		mx    geom.Vec3i
		flags string
	)
	if err := sc.Scan(&c.ID, &c.World, &c.Owner, &admin, &mn.X, &mn.Y, &mn.Z, &mx.X, &mx.Y, &mx.Z, &flags); err != nil {
		return nil, err
	}
	c.Admin = admin != 0
	c.Area = geom.NewBox(mn, mx)
	if err := json.Unmarshal([]byte(flags), &c.Flags); err != nil {
		return nil, fmt.Errorf("claim %s flags: %w", c.ID, err)
	}
	return &c, nil
}

func (s *Store) loadTree(ctx context.Context, id string) (*claims.Claim, error) {
	top, err := scanClaim(s.db.QueryRowContext(ctx, `SELECT `+claimCols+` FROM claims WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+claimCols+` FROM claims WHERE parent_id=? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	var kids []*claims.Claim
	for rows.Next() {
		ch, err := scanClaim(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		kids = append(kids, ch)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for _, ch := range kids {
		top.AddChild(ch)
	}

	byID := map[string]*claims.Claim{top.ID: top}
	for _, ch := range kids {
		byID[ch.ID] = ch
	}
	if err := s.loadGrants(ctx, byID); err != nil {
		return nil, err
	}
	return top, nil
}

func (s *Store) loadGrants(ctx context.Context, byID map[string]*claims.Claim) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := byID[id]
		rows, err := s.db.QueryContext(ctx, `SELECT viewer,permission FROM claim_trust WHERE claim_id=?`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var viewer, p string
			if err := rows.Scan(&viewer, &p); err != nil {
				_ = rows.Close()
				return err
			}
			c.Trust(viewer, claims.Permission(p))
		}
		if err := rows.Close(); err != nil {
			return err
		}

		rows, err = s.db.QueryContext(ctx, `SELECT viewer FROM claim_bans WHERE claim_id=?`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var viewer string
			if err := rows.Scan(&viewer); err != nil {
				_ = rows.Close()
				return err
			}
			c.Ban(viewer)
		}
		if err := rows.Close(); err != nil {
			return err
		}
	}
	return nil
}
