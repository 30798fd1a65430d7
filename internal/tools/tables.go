package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/store"
)

// QueryTableTool reads rows from a team's structured table.
type QueryTableTool struct {
	Tables store.TableStore
}

func (t *QueryTableTool) Name() string        { return "query_table" }
func (t *QueryTableTool) Description() string { return "Query rows from a structured team table." }
func (t *QueryTableTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"table": prop("string", "Table name"),
		"limit": prop("integer", "Max rows to return (default 20)"),
	}, "table")
}
func (t *QueryTableTool) Execute(ctx context.Context, args map[string]any) *Result {
	table := argString(args, "table")
	if table == "" {
		return ErrorResult("query_table requires a table name")
	}
	limit := argInt(args, "limit", 20)
	rows, err := t.Tables.Query(ctx, TeamIDFromCtx(ctx), table, limit)
	if err != nil {
		return ErrorResult(fmt.Sprintf("query table %s: %v", table, err))
	}
	if len(rows) == 0 {
		return NewResult("no rows found in table " + table)
	}

	type row struct {
		ID     uuid.UUID       `json:"id"`
		Fields json.RawMessage `json:"fields"`
	}
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		out = append(out, row{ID: r.ID, Fields: r.Fields})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return ErrorResult(fmt.Sprintf("encode rows: %v", err))
	}
	return NewResult(string(data))
}

// UpdateTableTool inserts or updates a row in a team's structured table.
type UpdateTableTool struct {
	Tables store.TableStore
}

func (t *UpdateTableTool) Name() string        { return "update_table" }
func (t *UpdateTableTool) Description() string { return "Insert a row into a structured team table, or update one by id." }
func (t *UpdateTableTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"table":  prop("string", "Table name"),
		"row_id": prop("string", "Row id to update (omit to insert)"),
		"fields": map[string]any{"type": "object", "description": "Column values"},
	}, "table", "fields")
}
func (t *UpdateTableTool) Execute(ctx context.Context, args map[string]any) *Result {
	table := argString(args, "table")
	if table == "" {
		return ErrorResult("update_table requires a table name")
	}
	fields, ok := args["fields"].(map[string]any)
	if !ok {
		return ErrorResult("update_table requires a fields object")
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return ErrorResult(fmt.Sprintf("encode fields: %v", err))
	}

	rec := &store.TableRecordData{
		TeamID: TeamIDFromCtx(ctx),
		Table:  table,
		Fields: raw,
	}
	if idStr := argString(args, "row_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return ErrorResult("row_id is not a valid id")
		}
		// Scope check before updating an existing row.
		existing, err := t.Tables.Query(ctx, TeamIDFromCtx(ctx), table, 0)
		if err != nil {
			return ErrorResult(fmt.Sprintf("query table %s: %v", table, err))
		}
		found := false
		for _, r := range existing {
			if r.ID == id {
				found = true
				break
			}
		}
		if !found {
			return ErrorResult(accessDenied)
		}
		rec.ID = id
	}

	if err := t.Tables.Upsert(ctx, rec); err != nil {
		return ErrorResult(fmt.Sprintf("update table %s: %v", table, err))
	}
	return NewResult(fmt.Sprintf("row %s written to table %s", rec.ID, table))
}
