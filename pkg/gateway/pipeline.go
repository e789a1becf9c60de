package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/redact"
)

type inquireBody struct {
	Recharge struct {
		RechargeType   string `json:"recharge_type"`
		Amount         int64  `json:"amount"`
		CustomerNumber string `json:"customer_number"`
	} `json:"recharge"`
}

type inquireResponse struct {
	ReferenceNumber string `json:"reference_number"`
}

type orderBody struct {
	Recharge struct {
		RechargeType    string `json:"recharge_type"`
		Amount          int64  `json:"amount"`
		CustomerNumber  string `json:"customer_number"`
		ReferenceNumber string `json:"reference_number"`
		UserID          string `json:"user_id"`
	} `json:"recharge"`
}

type orderResponse struct {
	UniqueID string `json:"unique_id"`
}

type payBody struct {
	Payment struct {
		UniqueID string `json:"unique_id"`
	} `json:"payment"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

type statusResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	SerialNumber string `json:"serial_number"`
	Balance      int64  `json:"balance"`
}

// CheckAvailability asks the gateway whether a denomination can be
// delivered to the number. Auth, not-found and rate-limit answers are
// surfaced as classified errors; any other failure falls back to the
// simulation so the conversation can continue offline.
func (c *Client) CheckAvailability(ctx context.Context, phoneNumber string, amount int64) (Availability, error) {
	if c.cfg.SimulationOnly {
		return simulateAvailability(amount), nil
	}

	body := inquireBody{}
	body.Recharge.RechargeType = rechargeType
	body.Recharge.Amount = amount
	body.Recharge.CustomerNumber = phoneNumber

	var resp inquireResponse
	err := c.do(ctx, http.MethodPost, "/recharges/inquire", body, &resp)
	if err == nil {
		return Availability{
			Available:       true,
			Price:           Price(amount),
			ReferenceNumber: resp.ReferenceNumber,
			Message:         "tersedia",
		}, nil
	}

	switch errorsx.Reason(err) {
	case errorsx.ReasonGatewayAuth, errorsx.ReasonGatewayNotFound, errorsx.ReasonGatewayRateLimit:
		return Availability{}, err
	}
	c.logger.Warn("inquire_fallback_simulation",
		"phone", redact.Phone(phoneNumber),
		"amount", amount,
		"error", err.Error())
	return simulateAvailability(amount), nil
}

// Purchase runs the order, pay and status sequence. A missing
// reference number triggers an availability check first. The purchase
// succeeds when pay reports success or the final status reads
// completed. Total gateway unavailability falls back to a simulated,
// explicitly marked transaction.
func (c *Client) Purchase(ctx context.Context, req PurchaseRequest) (*Transaction, error) {
	if c.cfg.SimulationOnly {
		return simulatePurchase(req), nil
	}

	if req.ReferenceNumber == "" {
		avail, err := c.CheckAvailability(ctx, req.PhoneNumber, req.Amount)
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			return nil, errorsx.Newf(errorsx.ReasonGatewayNotFound,
				"nominal %d tidak tersedia untuk %s", req.Amount, req.PhoneNumber)
		}
		if avail.Simulated {
			req.ReferenceNumber = avail.ReferenceNumber
			return simulatePurchase(req), nil
		}
		req.ReferenceNumber = avail.ReferenceNumber
	}

	tx, err := c.execute(ctx, req)
	if err == nil {
		return tx, nil
	}
	switch errorsx.Reason(err) {
	case errorsx.ReasonGatewayInsufficientBalance,
		errorsx.ReasonGatewayDuplicateTransaction,
		errorsx.ReasonGatewayInvalidParams,
		errorsx.ReasonGatewayAuth,
		errorsx.ReasonGatewayNotFound,
		errorsx.ReasonGatewayRateLimit:
		return nil, err
	}
	c.logger.Warn("purchase_fallback_simulation",
		"phone", redact.Phone(req.PhoneNumber),
		"amount", req.Amount,
		"error", err.Error())
	return simulatePurchase(req), nil
}

func (c *Client) execute(ctx context.Context, req PurchaseRequest) (*Transaction, error) {
	order := orderBody{}
	order.Recharge.RechargeType = rechargeType
	order.Recharge.Amount = req.Amount
	order.Recharge.CustomerNumber = req.PhoneNumber
	order.Recharge.ReferenceNumber = req.ReferenceNumber
	order.Recharge.UserID = c.cfg.UserID

	var ordered orderResponse
	if err := c.do(ctx, http.MethodPost, "/recharges/order", order, &ordered); err != nil {
		return nil, err
	}
	if ordered.UniqueID == "" {
		return nil, errorsx.New(errorsx.ReasonGatewayInvalidParams, "order returned no unique id")
	}

	pay := payBody{}
	pay.Payment.UniqueID = ordered.UniqueID
	var paid payResponse
	if err := c.do(ctx, http.MethodPost, "/recharges/pay", pay, &paid); err != nil {
		return nil, err
	}

	status, err := c.GetStatus(ctx, ordered.UniqueID)
	if err != nil {
		// Pay already answered; a failed poll only degrades detail.
		c.logger.Warn("status_poll_failed", "unique_id", ordered.UniqueID, "error", err.Error())
		status = &TransactionStatus{Status: paid.Status}
	}

	success := paid.Success || status.Status == "completed"
	message := status.Message
	if message == "" {
		if success {
			message = "transaksi berhasil"
		} else {
			message = fmt.Sprintf("transaksi berstatus %s", status.Status)
		}
	}
	return &Transaction{
		Success:         success,
		UniqueID:        ordered.UniqueID,
		ReferenceNumber: req.ReferenceNumber,
		Status:          status.Status,
		SerialNumber:    status.SerialNumber,
		Balance:         pickBalance(status.Balance, paid.Balance),
		Message:         message,
	}, nil
}

// GetStatus polls the final state of a transaction. It is a thin
// passthrough: any failure surfaces as a status-check error, with no
// simulation fallback.
func (c *Client) GetStatus(ctx context.Context, uniqueID string) (*TransactionStatus, error) {
	var resp statusResponse
	err := c.doOnce(ctx, http.MethodGet, "/recharges/"+uniqueID+"/status", nil, &resp)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStatusCheck)
	}
	return &TransactionStatus{
		Status:       resp.Status,
		Message:      resp.Message,
		SerialNumber: resp.SerialNumber,
		Balance:      resp.Balance,
	}, nil
}

func pickBalance(statusBalance, payBalance int64) int64 {
	if statusBalance != 0 {
		return statusBalance
	}
	return payBalance
}
