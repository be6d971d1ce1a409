package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"reward_ledger/internal/domain" // Domain error taxonomy
	"reward_ledger/internal/ledger" // Ledger errors
)

// writeError maps a ledger error to its HTTP response
func writeError(c *gin.Context, err error) {
	var cooldown *domain.CooldownError
	var outOfRange *domain.AmountOutOfRangeError
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":         "Cooldown period not yet elapsed", // Claim came too early
			"remainingTime": cooldown.RemainingSeconds,         // Whole seconds until claimable
		})
	case errors.As(err, &outOfRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Withdrawal amount must be between " + outOfRange.Min.String() + " and " + outOfRange.Max.String() + " DOGE",
			"min":   outOfRange.Min, // Inclusive lower bound
			"max":   outOfRange.Max, // Inclusive upper bound
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Withdrawal amount supports at most 8 decimal places"})
	case errors.Is(err, domain.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
	case errors.Is(err, domain.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Dogecoin address"})
	case errors.Is(err, ledger.ErrMissingReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": "txReference is required for a successful payout"})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, domain.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service busy, please retry"})
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route that failed
			"error": err.Error(),  // Error message
		}).Error("Request failed") // Unexpected failure
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// currentUserID reads the user id set by the JWT middleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID") // Set by JWTAuthMiddleware
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return id, true
}
