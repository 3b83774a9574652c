// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/domain"
	"github.com/rovshanmuradov/memesniper/internal/feed"
	"github.com/rovshanmuradov/memesniper/internal/settings"
	"github.com/rovshanmuradov/memesniper/internal/trade"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Server is running"})
}

func (s *Server) whaleActivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activities": s.deps.Whales.Snapshot()})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Settings.Get())
}

func (s *Server) saveSettings(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid settings."})
		return
	}

	patch, err := settings.ParsePatch(body)
	if err == nil {
		_, err = s.deps.Settings.Update(patch)
	}
	if err != nil {
		var invalid *settings.InvalidSettingsError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"message": invalid.Error()})
			return
		}
		s.logger.Error("Settings update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully."})
}

func (s *Server) topTraders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"traders": s.deps.TopTraders.TopTraders(c.Request.Context())})
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (s *Server) trackedAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": s.deps.Accounts.List()})
}

func (s *Server) track(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil || feed.NormalizeUsername(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid username"})
		return
	}

	user, err := s.deps.Accounts.Track(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Error adding account: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Now tracking @" + user.Username,
		"user_id": user.ID,
	})
}

func (s *Server) untrack(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil || feed.NormalizeUsername(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid username"})
		return
	}

	if err := s.deps.Accounts.Untrack(req.Username); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, feed.ErrNotTracked) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"status": "error", "message": "Account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Stopped tracking @" + feed.NormalizeUsername(req.Username),
	})
}

type tradeRequest struct {
	TokenSymbol  string   `json:"tokenSymbol"`
	TokenAddress string   `json:"tokenAddress"`
	EntryPrice   *float64 `json:"entryPrice"`
	CurrentPrice *float64 `json:"currentPrice"`
}

func (s *Server) placeTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.EntryPrice == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "entryPrice is required"})
		return
	}
	if req.TokenAddress != "" {
		if _, err := solana.PublicKeyFromBase58(req.TokenAddress); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid token address"})
			return
		}
	}

	evt, err := s.deps.Trading.Execute(c.Request.Context(), domain.TradeRequest{
		TokenSymbol:  req.TokenSymbol,
		TokenAddress: req.TokenAddress,
		EntryPrice:   *req.EntryPrice,
		CurrentPrice: req.CurrentPrice,
		Source:       domain.SourceManual,
	})
	if err != nil {
		s.tradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (s *Server) openTrades(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.deps.Trading.OpenOrders()})
}

type tickRequest struct {
	CurrentPrice *float64 `json:"currentPrice"`
}

func (s *Server) tickTrade(c *gin.Context) {
	var req tickRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPrice == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "currentPrice is required"})
		return
	}

	evt, err := s.deps.Trading.Tick(c.Request.Context(), c.Param("id"), *req.CurrentPrice)
	if err != nil {
		s.tradeError(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (s *Server) tradeError(c *gin.Context, err error) {
	var priceErr *trade.InvalidPriceError
	var paramsErr *trade.InvalidParametersError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrMissingToken),
		errors.As(err, &priceErr),
		errors.As(err, &paramsErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		s.logger.Error("Trade request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
