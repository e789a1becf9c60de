package gateway

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// simulatedDenominations is the fixed whitelist the simulation answers
// for. Anything else is reported unavailable.
var simulatedDenominations = map[int64]bool{
	5000:   true,
	10000:  true,
	15000:  true,
	20000:  true,
	25000:  true,
	50000:  true,
	100000: true,
}

func simulatedReference() string {
	return "SIM-" + strings.ToUpper(uuid.NewString()[:8])
}

func simulateAvailability(amount int64) Availability {
	if !simulatedDenominations[amount] {
		return Availability{
			Simulated: true,
			Message:   fmt.Sprintf("nominal %d tidak tersedia", amount),
		}
	}
	return Availability{
		Available:       true,
		Price:           Price(amount),
		ReferenceNumber: simulatedReference(),
		Message:         "tersedia (simulasi)",
		Simulated:       true,
	}
}

func simulatePurchase(req PurchaseRequest) *Transaction {
	ref := req.ReferenceNumber
	if ref == "" {
		ref = simulatedReference()
	}
	return &Transaction{
		Success:         true,
		UniqueID:        simulatedReference(),
		ReferenceNumber: ref,
		Status:          "completed",
		SerialNumber:    "SN" + uuid.NewString()[:12],
		Message:         "transaksi berhasil (simulasi)",
		Simulated:       true,
	}
}
