package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/domain/group"
)

type GroupRepository struct {
	db *sql.DB
	q  querier
}

func (r *GroupRepository) Transaction(ctx context.Context, fn func(group.Repository) error) error {
	return inTx(ctx, r.db, r.q, func(tx *sql.Tx) error {
		return fn(&GroupRepository{db: r.db, q: tx})
	})
}

func (r *GroupRepository) CreateGroup(ctx context.Context, g *group.Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.CreatedBy, toUnix(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *GroupRepository) GetGroup(ctx context.Context, groupID string) (*group.Group, error) {
	var (
		g         group.Group
		createdAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM groups WHERE id = ?`, groupID,
	).Scan(&g.ID, &g.Name, &g.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, group.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	g.CreatedAt = fromUnix(createdAt)
	return &g, nil
}

func (r *GroupRepository) ListGroupsByUser(ctx context.Context, userID string) ([]group.Group, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]group.Group, 0)
	for rows.Next() {
		var (
			g         group.Group
			createdAt int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.CreatedAt = fromUnix(createdAt)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepository) AddMember(ctx context.Context, member *group.Member) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`,
		member.GroupID, member.UserID, toUnix(member.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *GroupRepository) DeleteMember(ctx context.Context, groupID, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, rowid`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *GroupRepository) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
