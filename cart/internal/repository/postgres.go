package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	inErrors "github.com/obarbosa/mercadinho/internal/errors"
	"github.com/obarbosa/mercadinho/internal/log"
	inOtel "github.com/obarbosa/mercadinho/internal/otel"
)

const (
	queryFindCartByOwner = `select user_id, items, total, updated_at from carts where user_id = $1`
	querySaveCart        = `insert into carts (user_id, items, total, updated_at)
values ($1, $2, $3, $4)
on conflict (user_id)
do update set items = excluded.items, total = excluded.total, updated_at = excluded.updated_at`
	queryDeleteCart   = `delete from carts where user_id = $1`
	queryListAllCarts = `select user_id, items, total, updated_at from carts order by updated_at desc`
	queryOwnerLock    = `select pg_advisory_xact_lock(hashtextextended($1, 0))`
)

type querier interface {
	Exec(c context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(c context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(c context.Context, sql string, args ...any) pgx.Row
}

// PostgresCartStore persists one row per owner with the item sequence as a
// jsonb payload. Item uniqueness per product is an engine invariant, not a
// schema constraint.
type PostgresCartStore struct {
	pool *pgxpool.Pool
	db   querier
}

func NewPostgresCartStore(pool *pgxpool.Pool) *PostgresCartStore {
	return &PostgresCartStore{pool: pool, db: pool}
}

func (s *PostgresCartStore) FindByOwner(c context.Context, owner uuid.UUID) (Cart, error) {
	cart := Cart{}
	var (
		items []byte
		total pgtype.Numeric
	)
	row := s.db.QueryRow(c, queryFindCartByOwner, owner)
	err := row.Scan(&cart.UserID, &items, &total, &cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("cart of userId=%s with error=%w", owner.String(), inErrors.ErrCartNotFound)
	}
	if err != nil {
		return Cart{}, wrapStoreErr("finding cart", err)
	}
	if err = json.Unmarshal(items, &cart.Items); err != nil {
		return Cart{}, wrapStoreErr("unmarshaling cart items", err)
	}
	cart.Total = decimal.NewFromBigInt(total.Int, total.Exp)
	return cart, nil
}

func (s *PostgresCartStore) Save(c context.Context, cart Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return wrapStoreErr("marshaling cart items", err)
	}
	_, err = s.db.Exec(c, querySaveCart, cart.UserID, items, numeric(cart.Total), cart.UpdatedAt)
	if err != nil {
		return wrapStoreErr("saving cart", err)
	}
	return nil
}

func (s *PostgresCartStore) Delete(c context.Context, owner uuid.UUID) error {
	tag, err := s.db.Exec(c, queryDeleteCart, owner)
	if err != nil {
		return wrapStoreErr("deleting cart", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart of userId=%s with error=%w", owner.String(), inErrors.ErrCartNotFound)
	}
	return nil
}

func (s *PostgresCartStore) ListAll(c context.Context) ([]Cart, error) {
	rows, err := s.db.Query(c, queryListAllCarts)
	if err != nil {
		return nil, wrapStoreErr("listing carts", err)
	}
	defer rows.Close()

	carts := []Cart{}
	for rows.Next() {
		cart := Cart{}
		var (
			items []byte
			total pgtype.Numeric
		)
		if err := rows.Scan(&cart.UserID, &items, &total, &cart.UpdatedAt); err != nil {
			return nil, wrapStoreErr("scanning cart", err)
		}
		if err := json.Unmarshal(items, &cart.Items); err != nil {
			return nil, wrapStoreErr("unmarshaling cart items", err)
		}
		cart.Total = decimal.NewFromBigInt(total.Int, total.Exp)
		carts = append(carts, cart)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("listing carts", err)
	}
	return carts, nil
}

// WithOwnerLock serializes fn against all other WithOwnerLock calls for the
// same owner via a transaction-scoped advisory lock on the owner id hash.
// fn receives a store bound to the transaction; the lock is released on
// commit or rollback.
func (s *PostgresCartStore) WithOwnerLock(
	c context.Context,
	owner uuid.UUID,
	fn func(c context.Context, store CartStore) error,
) error {
	c, span := inOtel.Tracer.Start(c, "PostgresCartStore WithOwnerLock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCartStore WithOwnerLock").
		Str(log.KeyUserID, owner.String()).
		Logger()

	tx, err := s.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		err = wrapStoreErr("initializing transaction", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		err := tx.Rollback(c)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			err = fmt.Errorf("failed rolling back transaction with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}()

	if _, err = tx.Exec(c, queryOwnerLock, owner.String()); err != nil {
		err = wrapStoreErr("acquiring owner lock", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if err = fn(c, &PostgresCartStore{pool: s.pool, db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(c); err != nil {
		err = wrapStoreErr("committing transaction", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Exp:              d.Exponent(),
		InfinityModifier: pgtype.Finite,
		Int:              d.Coefficient(),
		NaN:              false,
		Valid:            true,
	}
}

func wrapStoreErr(process string, err error) error {
	return fmt.Errorf("failed %s with error=%w", process, errors.Join(inErrors.ErrStoreUnavailable, err))
}
