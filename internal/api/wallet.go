package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Timestamps

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point money
	"github.com/sirupsen/logrus"    // Logging library

	"reward_ledger/internal/domain" // Domain models
	"reward_ledger/internal/ledger" // Ledger service
	"reward_ledger/internal/utils"  // Utility functions
)

// BalanceResponse is the spendable balance and lifetime earnings of a user
type BalanceResponse struct {
	Balance     decimal.Decimal `json:"balance"`     // Spendable balance
	TotalEarned decimal.Decimal `json:"totalEarned"` // Lifetime earnings
	Cached      bool            `json:"cached"`      // Served from cache
}

// GetBalanceHandler returns the balance of the authenticated user
func GetBalanceHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()                              // Context for Redis operations
		cacheKey := utils.BalanceKey(userID)                    // Cache key for balance
		var resp BalanceResponse                                // Balance to return
		found, err := utils.GetCache(ctx, rdb, cacheKey, &resp) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			resp.Cached = true
			c.JSON(http.StatusOK, resp)
			return
		}
		user, err := svc.Balance(ctx, userID) // Fetch from the store
		if err != nil {
			writeError(c, err)
			return
		}
		resp = BalanceResponse{Balance: user.Balance, TotalEarned: user.TotalEarned}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL) // Cache the balance
		c.JSON(http.StatusOK, resp)
	}
}

// WithdrawRequest represents a withdrawal request
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"` // Requested payout, fee excluded
}

// WithdrawResponse acknowledges an accepted withdrawal
type WithdrawResponse struct {
	Success       bool                     `json:"success"`       // Always true on 200
	Message       string                   `json:"message"`       // Human readable status
	TransactionID uint                     `json:"transactionId"` // Pending transaction
	Amount        decimal.Decimal          `json:"amount"`        // Amount to be paid out
	Fee           decimal.Decimal          `json:"fee"`           // Fee reserved with the amount
	Status        domain.TransactionStatus `json:"status"`        // Always pending
	EstimatedTime string                   `json:"estimatedTime"` // Expected settlement window
}

// WithdrawHandler reserves funds for a payout to the user's own wallet
func WithdrawHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := svc.RequestWithdrawal(c.Request.Context(), userID, req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		invalidate(c, rdb, userID)
		c.JSON(http.StatusOK, WithdrawResponse{
			Success:       true,
			Message:       "Withdrawal request submitted",
			TransactionID: res.TransactionID,
			Amount:        res.Amount,
			Fee:           res.Fee,
			Status:        res.Status,
			EstimatedTime: "24-48 hours",
		})
	}
}

// TransactionResponse is one entry of the transaction history
type TransactionResponse struct {
	ID          uint                     `json:"id"`               // Transaction ID
	Type        domain.TransactionType   `json:"type"`             // earn or withdraw
	Amount      decimal.Decimal          `json:"amount"`           // Always positive
	Fee         decimal.Decimal          `json:"fee"`              // Withdrawal fee
	TaskID      *uint                    `json:"taskId,omitempty"` // Earned from this task
	Status      domain.TransactionStatus `json:"status"`           // pending, completed, failed
	TxReference *string                  `json:"txReference"`      // Payout confirmation
	CreatedAt   time.Time                `json:"createdAt"`        // Creation time
}

// TransactionHistory is the cached transaction list of a user
type TransactionHistory struct {
	Transactions []TransactionResponse `json:"transactions"` // Newest first
	Limit        int                   `json:"limit"`        // Effective page size
	Cached       bool                  `json:"cached"`       // Served from cache
}

// GetTransactionHistoryHandler returns the most recent transactions of the authenticated user
func GetTransactionHistoryHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		limit := 0 // Default page size
		// If limit exists in query
		if l := c.Query("limit"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
				return
			}
			limit = v
		}
		limit = ledger.ClampLimit(limit)
		ctx := c.Request.Context()                       // Context for Redis operations
		cacheKey := utils.TransactionsKey(userID, limit) // Redis cache key
		var history TransactionHistory
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &history)
		if err == nil && found {
			history.Cached = true
			c.JSON(http.StatusOK, history)
			return
		}
		txs, err := svc.ListTransactions(ctx, userID, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		history = TransactionHistory{Transactions: make([]TransactionResponse, len(txs)), Limit: limit}
		// Map transactions to response format
		for i, t := range txs {
			history.Transactions[i] = TransactionResponse{
				ID:          t.ID,
				Type:        t.Type,
				Amount:      t.Amount,
				Fee:         t.Fee,
				TaskID:      t.TaskID,
				Status:      t.Status,
				TxReference: t.TxReference,
				CreatedAt:   t.CreatedAt,
			}
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, history, utils.CacheTTL) // Cache the page
		c.JSON(http.StatusOK, history)
	}
}

// invalidate drops the cached views of a user after a mutation
func invalidate(c *gin.Context, rdb *redis.Client, userID uint) {
	if err := utils.InvalidateUser(c.Request.Context(), rdb, userID); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // User ID
			"error":   err.Error(), // Error message
		}).Warn("Failed to invalidate cache")
	}
}
