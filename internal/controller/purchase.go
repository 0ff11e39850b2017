package controller

import (
	"errors"
	"net/http"

	"github.com/amezhanin/skinstore/internal/service"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type PurchaseController struct {
	ledger service.LedgerService
	logger *zap.Logger
}

func NewPurchaseController(ledger service.LedgerService, logger *zap.Logger) *PurchaseController {
	return &PurchaseController{
		ledger: ledger,
		logger: logger,
	}
}

// Buy debits the user's balance. The amount constraint is enforced here,
// before any transaction is opened.
func (c *PurchaseController) Buy(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID int64 `json:"userId"`
		Amount int64 `json:"amount"`
	}

	if err := render.DecodeJSON(r.Body, &request); err != nil {
		c.logger.Debug("Invalid request format", zap.Error(err))
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if request.UserID <= 0 || request.Amount <= 0 {
		http.Error(w, "userId and amount must be positive", http.StatusBadRequest)
		return
	}

	balance, err := c.ledger.Debit(r.Context(), request.UserID, request.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusBadRequest)
		case errors.Is(err, service.ErrInsufficientBalance):
			http.Error(w, "Insufficient balance", http.StatusBadRequest)
		default:
			c.logger.Error("Debit failed",
				zap.Int64("user_id", request.UserID),
				zap.Int64("amount", request.Amount),
				zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	c.logger.Info("Purchase completed",
		zap.Int64("user_id", request.UserID),
		zap.Int64("amount", request.Amount),
		zap.Int64("balance", balance))

	render.JSON(w, r, map[string]int64{
		"id":      request.UserID,
		"balance": balance,
	})
}
