package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/tracing"
)

const accountsTable = "ad_accounts"

var accountStruct = database.NewStruct(new(models.AdAccount))

// AccountRepository handles database operations for ad accounts
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new ad account repository
func NewAccountRepository(db database.DB, logger ectologger.Logger) *AccountRepository {
	return &AccountRepository{
		Repository: NewRepository(db, logger),
	}
}

// Upsert inserts or updates an account keyed on its external account_id.
// Replaying the same account is idempotent.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.AdAccount) error {
	ctx, span := tracing.StartSpan(ctx, "AccountRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	ib := accountStruct.InsertInto(accountsTable, account)
	ub := ib.OnConflict("account_id")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("currency", database.Excluded("currency")),
		ub.Assign("timezone", database.Excluded("timezone")),
		ub.Assign("business_id", database.Excluded("business_id")),
		ub.Assign("business_name", database.Excluded("business_name")),
		ub.Assign("amount_spent", database.Excluded("amount_spent")),
		ub.Assign("balance", database.Excluded("balance")),
		ub.Assign("spend_cap", database.Excluded("spend_cap")),
		ub.Assign("capabilities", database.Excluded("capabilities")),
		ub.Assign("last_sync_at", database.Excluded("last_sync_at")),
		ub.Assign("updated_at", now),
	)

	query, args := ib.Build()
	_, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": account.AccountID,
		}).Error("failed to upsert ad account")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert ad account")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": account.AccountID,
	}).Debugf("Upserted %s", accountsTable)
	return nil
}

// GetByID retrieves an account by its external ID
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AccountRepository.GetByID")
	defer span.End()

	sb := accountStruct.SelectFrom(accountsTable)
	sb.Where(sb.Equal("account_id", accountID))

	query, args := sb.Build()
	var account models.AdAccount
	err := r.DB().GetContext(ctx, &account, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "account %s does not exist", accountID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to get ad account by ID")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get ad account by ID")
	}

	return &account, nil
}

// List retrieves all accounts ordered by name
func (r *AccountRepository) List(ctx context.Context) ([]models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AccountRepository.List")
	defer span.End()

	sb := accountStruct.SelectFrom(accountsTable)
	sb.OrderBy("name")

	query, args := sb.Build()
	var accounts []models.AdAccount
	err := r.DB().SelectContext(ctx, &accounts, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list ad accounts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list ad accounts")
	}

	return accounts, nil
}

// ListActive retrieves accounts eligible for sync passes
func (r *AccountRepository) ListActive(ctx context.Context) ([]models.AdAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "AccountRepository.ListActive")
	defer span.End()

	sb := accountStruct.SelectFrom(accountsTable)
	sb.Where(sb.Equal("status", models.AccountStatusActive))
	sb.OrderBy("name")

	query, args := sb.Build()
	var accounts []models.AdAccount
	err := r.DB().SelectContext(ctx, &accounts, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list active ad accounts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active ad accounts")
	}

	return accounts, nil
}

// Delete deletes an account by ID. Campaigns, ad sets and ads under the
// account are removed by the cascade; insight rows are pruned separately.
func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	ctx, span := tracing.StartSpan(ctx, "AccountRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(accountsTable).
		Where(db.Equal("account_id", accountID))

	query, args := db.Build()

	txCtx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.ExecContext(txCtx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to delete ad account")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete ad account")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": accountID,
		}).Error("failed to delete ad account")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete ad account")
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "account %s does not exist", accountID)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
	}).Debugf("Deleted %s", accountsTable)
	return nil
}
