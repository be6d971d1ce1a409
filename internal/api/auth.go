package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"reward_ledger/internal/domain" // Domain models
	"reward_ledger/internal/ledger" // Ledger service
	"reward_ledger/internal/utils"  // Utility functions
)

// ConnectRequest opens a session for a wallet address
type ConnectRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"` // Dogecoin address must be provided
}

// ConnectResponse carries the session token and the user record
type ConnectResponse struct {
	Success bool        `json:"success"` // Always true on 200
	Token   string      `json:"token"`   // JWT bearer token
	User    domain.User `json:"user"`    // Provisioned user
}

// ConnectHandler provisions the user owning the wallet on first contact and returns a JWT token
func ConnectHandler(svc *ledger.Service, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConnectRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		address := strings.TrimSpace(req.WalletAddress) // Ignore surrounding whitespace
		if !utils.IsValidDogeAddress(address) {
			writeError(c, domain.ErrInvalidAddress)
			return
		}
		user, err := svc.EnsureUser(c.Request.Context(), address) // Find or create the user
		if err != nil {
			writeError(c, err)
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.WalletAddress, jwtSecret, ttl)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to generate token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, ConnectResponse{Success: true, Token: token, User: *user})
	}
}
