package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresHistory persists deployment records and the last accepted node
// definition.
type PostgresHistory struct {
	client *PostgresClient
}

func NewPostgresHistory(client *PostgresClient) *PostgresHistory {
	return &PostgresHistory{client: client}
}

// Record inserts the deployment and, for successful deploys, upserts the
// node definition in the same transaction.
func (h *PostgresHistory) Record(ctx context.Context, rec *DeploymentRecord) error {
	tx, err := h.client.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	programJSON, err := json.Marshal(nonNil(rec.Program))
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}
	slotsJSON, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}
	validationJSON, err := json.Marshal(nonNil(rec.ValidationErrors))
	if err != nil {
		return fmt.Errorf("failed to marshal validation errors: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO deployments (
			id, operation, folder, node_name, controller, transport, endpoint,
			success, stage, error, output, warning, program, slots,
			validation_errors, created_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, rec.ID, rec.Operation, rec.Folder, rec.NodeName, rec.Controller, rec.Transport, rec.Endpoint,
		rec.Success, rec.Stage, rec.Error, rec.Output, rec.Warning, programJSON, slotsJSON,
		validationJSON, rec.CreatedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deployment: %w", err)
	}

	if rec.Success && rec.Controller != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO node_definitions (folder, node_name, controller, slots, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (folder, node_name)
			DO UPDATE SET controller = EXCLUDED.controller,
			              slots = EXCLUDED.slots,
			              updated_at = EXCLUDED.updated_at
		`, rec.Folder, rec.NodeName, rec.Controller, slotsJSON, rec.FinishedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert node definition: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const selectDeployment = `
	SELECT id, operation, folder, node_name, controller, transport, endpoint,
	       success, stage, error, output, warning, program, slots,
	       validation_errors, created_at, finished_at
	FROM deployments`

func (h *PostgresHistory) Get(ctx context.Context, id uuid.UUID) (*DeploymentRecord, error) {
	row := h.client.pool.QueryRow(ctx, selectDeployment+` WHERE id = $1`, id)
	rec, err := scanDeployment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("deployment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment: %w", err)
	}
	return rec, nil
}

func (h *PostgresHistory) List(ctx context.Context, limit int) ([]*DeploymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := h.client.pool.Query(ctx, selectDeployment+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}
	defer rows.Close()

	var out []*DeploymentRecord
	for rows.Next() {
		rec, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// NodeDefinition returns the last accepted selection for a node.
func (h *PostgresHistory) NodeDefinition(ctx context.Context, folder, nodeName string) (*NodeDefinition, error) {
	var def NodeDefinition
	var slotsJSON []byte
	err := h.client.pool.QueryRow(ctx, `
		SELECT folder, node_name, controller, slots, updated_at
		FROM node_definitions
		WHERE folder = $1 AND node_name = $2
	`, folder, nodeName).Scan(&def.Folder, &def.NodeName, &def.Controller, &slotsJSON, &def.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("node %s/%s: %w", folder, nodeName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load node definition: %w", err)
	}
	if err := json.Unmarshal(slotsJSON, &def.Slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	return &def, nil
}

func scanDeployment(row pgx.Row) (*DeploymentRecord, error) {
	var rec DeploymentRecord
	var programJSON, slotsJSON, validationJSON []byte

	err := row.Scan(
		&rec.ID, &rec.Operation, &rec.Folder, &rec.NodeName, &rec.Controller, &rec.Transport, &rec.Endpoint,
		&rec.Success, &rec.Stage, &rec.Error, &rec.Output, &rec.Warning, &programJSON, &slotsJSON,
		&validationJSON, &rec.CreatedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(programJSON, &rec.Program); err != nil {
		return nil, fmt.Errorf("failed to unmarshal program: %w", err)
	}
	if err := json.Unmarshal(slotsJSON, &rec.Slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
	}
	if err := json.Unmarshal(validationJSON, &rec.ValidationErrors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal validation errors: %w", err)
	}
	return &rec, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
