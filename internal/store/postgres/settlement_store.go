package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ensure SettlementStore implements store.SettlementStore.
var _ store.SettlementStore = (*SettlementStore)(nil)

const settlementColumns = `id, event_id, from_entity_id, from_entity_type, to_entity_id, to_entity_type,
	from_user_id, to_user_id, amount_cents, currency, settlement_amount_cents, settlement_currency,
	fx_rate, status, payment_method, payment_id, checkout_url, failure_reason, retry_count,
	initiated_at, failed_at, completed_at, created_at, updated_at`

// SettlementStore implements store.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool Pool
}

// NewSettlementStore creates a new SettlementStore instance.
func NewSettlementStore(pool Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// CommitSettlementPlan replaces the event's settlements and writes its state in one transaction.
func (s *SettlementStore) CommitSettlementPlan(ctx context.Context, eventID string, expectedVersion int64, settlements []*types.Settlement, update types.EventStateUpdate) (*types.Event, error) {
	log := logger.GetLogger()
	var event *types.Event

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		// The version check runs first so a lost race deletes nothing.
		var err error
		event, err = updateEventState(ctx, tx, eventID, expectedVersion, update)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM settlements WHERE event_id = $1`, eventID); err != nil {
			return mapError(err, "delete settlements")
		}

		for _, st := range settlements {
			if _, err := tx.Exec(ctx, insertSettlementSQL, settlementArgs(st)...); err != nil {
				return mapError(err, "insert settlement")
			}
		}
		return nil
	})
	if err != nil {
		log.Warnw("Settlement plan commit failed", "eventId", eventID, "error", err)
		return nil, err
	}

	log.Infow("Committed settlement plan",
		"eventId", eventID,
		"transactions", len(settlements),
		"status", event.Status,
		"version", event.Version)
	return event, nil
}

const insertSettlementSQL = `
	INSERT INTO settlements (` + settlementColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
	        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

func settlementArgs(st *types.Settlement) []any {
	var settlementAmount *int64
	if st.SettlementAmount != nil {
		v := int64(*st.SettlementAmount)
		settlementAmount = &v
	}
	var fxRate *string
	if st.FXRate != nil {
		v := st.FXRate.String()
		fxRate = &v
	}
	return []any{
		st.ID,
		st.EventID,
		st.FromEntityID,
		string(st.FromEntityType),
		st.ToEntityID,
		string(st.ToEntityType),
		st.FromUserID,
		st.ToUserID,
		int64(st.Amount),
		st.Currency,
		settlementAmount,
		st.SettlementCurrency,
		fxRate,
		string(st.Status),
		st.PaymentMethod,
		st.PaymentID,
		st.CheckoutURL,
		st.FailureReason,
		st.RetryCount,
		st.InitiatedAt,
		st.FailedAt,
		st.CompletedAt,
		st.CreatedAt,
		st.UpdatedAt,
	}
}

// ListEventSettlements returns the event's settlements in creation order.
func (s *SettlementStore) ListEventSettlements(ctx context.Context, eventID string) ([]*types.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE event_id = $1 ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, mapError(err, "list settlements")
	}
	defer rows.Close()

	settlements := make([]*types.Settlement, 0)
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, mapError(err, "scan settlement")
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list settlements")
	}
	return settlements, nil
}

// GetSettlement retrieves a settlement by its ID.
func (s *SettlementStore) GetSettlement(ctx context.Context, id string) (*types.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`
	st, err := scanSettlement(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get settlement")
	}
	return st, nil
}

// UpdateSettlement writes the mutable payment fields if the stored status is still expected.
func (s *SettlementStore) UpdateSettlement(ctx context.Context, st *types.Settlement, expected types.SettlementStatus) error {
	st.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE settlements
		SET status = $3, payment_method = $4, payment_id = $5, checkout_url = $6,
		    failure_reason = $7, retry_count = $8, initiated_at = $9, failed_at = $10,
		    completed_at = $11, updated_at = $12
		WHERE id = $1 AND status = $2`

	tag, err := s.pool.Exec(ctx, query,
		st.ID,
		string(expected),
		string(st.Status),
		st.PaymentMethod,
		st.PaymentID,
		st.CheckoutURL,
		st.FailureReason,
		st.RetryCount,
		st.InitiatedAt,
		st.FailedAt,
		st.CompletedAt,
		st.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update settlement")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM settlements WHERE id = $1)`, st.ID).Scan(&exists); err != nil {
		return mapError(err, "check settlement exists")
	}
	if !exists {
		return fmt.Errorf("update settlement: %w", store.ErrNotFound)
	}
	return fmt.Errorf("update settlement: status is no longer %s: %w", expected, store.ErrConflict)
}

func scanSettlement(row pgx.Row) (*types.Settlement, error) {
	var (
		st               types.Settlement
		fromType, toType string
		status           string
		amount           int64
		settlementAmount *int64
		fxRate           *string
	)
	err := row.Scan(
		&st.ID,
		&st.EventID,
		&st.FromEntityID,
		&fromType,
		&st.ToEntityID,
		&toType,
		&st.FromUserID,
		&st.ToUserID,
		&amount,
		&st.Currency,
		&settlementAmount,
		&st.SettlementCurrency,
		&fxRate,
		&status,
		&st.PaymentMethod,
		&st.PaymentID,
		&st.CheckoutURL,
		&st.FailureReason,
		&st.RetryCount,
		&st.InitiatedAt,
		&st.FailedAt,
		&st.CompletedAt,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.FromEntityType = types.EntityType(fromType)
	st.ToEntityType = types.EntityType(toType)
	st.Status = types.SettlementStatus(status)
	st.Amount = valueobjects.Amount(amount)
	if settlementAmount != nil {
		v := valueobjects.Amount(*settlementAmount)
		st.SettlementAmount = &v
	}
	if fxRate != nil {
		rate, err := decimal.NewFromString(*fxRate)
		if err != nil {
			return nil, fmt.Errorf("decode fx rate %q: %w", *fxRate, err)
		}
		st.FXRate = &rate
	}
	return &st, nil
}
