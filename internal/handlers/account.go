package handlers

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/models"
	"github.com/adpulse/adsync/pkg/repositories"
)

// AccountHandler handles ad account API requests
type AccountHandler struct {
	db       database.DB
	accounts repositories.AccountRepo
	insights repositories.InsightRepo
	cache    *cache.Cache
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(db database.DB, accounts repositories.AccountRepo, insights repositories.InsightRepo, c *cache.Cache) *AccountHandler {
	return &AccountHandler{
		db:       db,
		accounts: accounts,
		insights: insights,
		cache:    c,
	}
}

// RegisterRoutes registers the account routes
func (h *AccountHandler) RegisterRoutes(g *echo.Group) {
	accounts := g.Group("/accounts")
	accounts.GET("", h.List)
	accounts.GET("/:id", h.Get)
	accounts.DELETE("/:id", h.Delete)
}

// List handles GET /accounts
func (h *AccountHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	accounts, err := h.accounts.List(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, accounts)
}

// Get handles GET /accounts/:id
func (h *AccountHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	key := cache.AccountKey(accountID)

	var cached models.AdAccount
	if h.cache.GetJSON(ctx, key, &cached) {
		return SuccessResponse(c, cached)
	}

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	h.cache.SetJSON(ctx, key, account, cache.AccountTTL)

	return SuccessResponse(c, account)
}

// Delete handles DELETE /accounts/:id. Campaigns, ad sets and ads go with
// the account; insights have no foreign key and are pruned in the same
// transaction so a failed prune cannot strand orphaned rows.
func (h *AccountHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := PathParam(c, "id")
	if err != nil {
		return err
	}

	txCtx, tx, err := h.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := h.accounts.Delete(txCtx, accountID); err != nil {
		return err
	}

	if _, err := h.insights.DeleteByAccount(txCtx, accountID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	h.cache.InvalidateAccount(ctx, accountID)

	return NoContentResponse(c)
}
