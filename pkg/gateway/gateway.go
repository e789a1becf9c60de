// Package gateway executes prepaid airtime transactions against the
// payment gateway's recharge API: inquire for availability, then the
// order, pay and status sequence for a purchase. When the gateway
// cannot be reached at all, a deterministic simulation mode answers
// instead, with results explicitly marked as simulated.
package gateway

import "time"

const rechargeType = "pulsa"

// Config carries the gateway connection settings.
type Config struct {
	BaseURL  string
	UserID   string
	APIToken string
	Timeout  time.Duration
	// SimulationOnly skips the live gateway entirely. Used when no
	// credentials are configured.
	SimulationOnly bool
}

// Availability is the inquire outcome for a phone number and amount.
type Availability struct {
	Available       bool   `json:"available"`
	Price           int64  `json:"price,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	Message         string `json:"message,omitempty"`
	Simulated       bool   `json:"simulated"`
}

// PurchaseRequest identifies the purchase to execute. ReferenceNumber
// is optional; when absent an inquire runs first to obtain one.
type PurchaseRequest struct {
	PhoneNumber     string
	Amount          int64
	Provider        string
	ReferenceNumber string
}

// Transaction is the immutable result of an executed purchase.
type Transaction struct {
	Success         bool   `json:"success"`
	UniqueID        string `json:"transactionId,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	Status          string `json:"status,omitempty"`
	SerialNumber    string `json:"serialNumber,omitempty"`
	Balance         int64  `json:"balance,omitempty"`
	Message         string `json:"message,omitempty"`
	Simulated       bool   `json:"simulated"`
}

// TransactionStatus is the passthrough result of a status poll.
type TransactionStatus struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Balance      int64  `json:"balance,omitempty"`
}

// AdminFee is the 5% surcharge applied on top of the face amount,
// rounded up to the next rupiah.
func AdminFee(amount int64) int64 {
	return (amount + 19) / 20
}

// Price is the amount the customer pays for a given denomination.
func Price(amount int64) int64 {
	return amount + AdminFee(amount)
}
