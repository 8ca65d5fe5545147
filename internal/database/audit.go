package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type InsertActionLogParams struct {
	Actor        string
	OnBehalfOf   pgtype.Text
	ActionCode   string
	TableName    string
	RecordRef    string
	Detail       string
	AdminReason  pgtype.Text
	AdminComment pgtype.Text
	OldData      []byte
}

func (q *Queries) InsertActionLog(ctx context.Context, arg InsertActionLogParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO action_log (id, actor, on_behalf_of, action_code, table_name, record_ref, detail, admin_reason, admin_comment, old_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), arg.Actor, arg.OnBehalfOf, arg.ActionCode, arg.TableName,
		arg.RecordRef, arg.Detail, arg.AdminReason, arg.AdminComment, arg.OldData)
	return err
}
