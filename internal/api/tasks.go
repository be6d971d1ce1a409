package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Timestamps

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point money

	"reward_ledger/internal/ledger" // Ledger service
)

// TaskResponse is an enabled task with the caller's claim status
type TaskResponse struct {
	ID            uint            `json:"id"`            // Task ID
	Name          string          `json:"name"`          // Display name
	Reward        decimal.Decimal `json:"reward"`        // Credited per claim
	Cooldown      int64           `json:"cooldown"`      // Seconds between claims
	CanClaim      bool            `json:"canClaim"`      // Cooldown elapsed
	RemainingTime int64           `json:"remainingTime"` // Seconds until claimable
	LastCompleted *time.Time      `json:"lastCompleted"` // Most recent claim
}

// ListTasksHandler returns the enabled tasks for the authenticated user
func ListTasksHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		views, err := svc.ListTasks(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		tasks := make([]TaskResponse, len(views))
		for i, v := range views {
			tasks[i] = TaskResponse{
				ID:            v.ID,
				Name:          v.Name,
				Reward:        v.Reward,
				Cooldown:      v.CooldownSeconds,
				CanClaim:      v.CanClaim,
				RemainingTime: v.RemainingSeconds,
				LastCompleted: v.LastCompletedAt,
			}
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// ClaimHandler credits the reward of a task whose cooldown has elapsed
func ClaimHandler(svc *ledger.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64) // Task ID from path
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		res, err := svc.Claim(c.Request.Context(), userID, uint(taskID), c.ClientIP())
		if err != nil {
			writeError(c, err)
			return
		}
		invalidate(c, rdb, userID)
		c.JSON(http.StatusOK, gin.H{
			"success":       true,              // Reward credited
			"reward":        res.Reward,        // Amount credited
			"newBalance":    res.NewBalance,    // Balance after credit
			"transactionId": res.TransactionID, // Earn transaction
		})
	}
}
