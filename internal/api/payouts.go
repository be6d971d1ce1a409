package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"reward_ledger/internal/ledger" // Ledger service
)

// ResolvePayoutRequest reports the outcome of an external payout
type ResolvePayoutRequest struct {
	Success     *bool  `json:"success" binding:"required"` // Outcome must be provided
	TxReference string `json:"txReference"`                // Required when success is true
}

// ResolvePayoutHandler applies a payout outcome reported by the payout service.
// Repeated callbacks for an already resolved withdrawal are acknowledged without effect.
func ResolvePayoutHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Transaction ID from path
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		var req ResolvePayoutRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		outcome := ledger.Failed()
		if *req.Success {
			outcome = ledger.Succeeded(req.TxReference)
		}
		ctx := c.Request.Context()
		applied, err := svc.ResolvePayout(ctx, uint(id), outcome)
		if err != nil {
			writeError(c, err)
			return
		}
		tx, err := svc.Transaction(ctx, uint(id)) // Read back the settled state
		if err != nil {
			writeError(c, err)
			return
		}
		if applied {
			invalidate(c, rdb, tx.UserID)
		}
		c.JSON(http.StatusOK, gin.H{
			"applied":     applied,        // False for a duplicate callback
			"status":      tx.Status,      // Final status
			"txReference": tx.TxReference, // Stored payout reference
		})
	}
}
