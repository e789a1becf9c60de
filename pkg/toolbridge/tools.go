// Package toolbridge exposes the purchase flow as named tools: typed
// arguments in, JSON text payloads out. The registry dispatches by
// tool name and the server publishes the registry over stdio.
package toolbridge

import "github.com/tyo-it/pulsa-bridge/pkg/configutil"

// Tool names accepted by the bridge.
const (
	ToolCheckAvailability = "check_pulsa_availability"
	ToolPurchase          = "purchase_pulsa"
	ToolValidatePhone     = "validate_phone_number"
	ToolProcessSpeech     = "process_speech_command"
	ToolConfirmPurchase   = "confirm_purchase"
)

// CheckAvailabilityArgs asks whether a denomination can be purchased
// for a number. Provider is advisory; the carrier prefix decides.
type CheckAvailabilityArgs struct {
	PhoneNumber string `mapstructure:"phoneNumber" json:"phoneNumber"`
	Amount      int64  `mapstructure:"amount" json:"amount"`
	Provider    string `mapstructure:"provider" json:"provider,omitempty"`
}

// PurchaseArgs executes a purchase directly, without the
// conversational confirmation step.
type PurchaseArgs struct {
	PhoneNumber     string `mapstructure:"phoneNumber" json:"phoneNumber"`
	Amount          int64  `mapstructure:"amount" json:"amount"`
	Provider        string `mapstructure:"provider" json:"provider,omitempty"`
	ReferenceNumber string `mapstructure:"referenceNumber" json:"referenceNumber,omitempty"`
}

type ValidatePhoneArgs struct {
	PhoneNumber string `mapstructure:"phoneNumber" json:"phoneNumber"`
}

// ProcessSpeechArgs feeds one transcribed utterance into the
// orchestrator. SessionID is optional; one is generated when absent.
type ProcessSpeechArgs struct {
	SpeechText string `mapstructure:"speechText" json:"speechText"`
	SessionID  string `mapstructure:"sessionId" json:"sessionId,omitempty"`
}

type ConfirmPurchaseArgs struct {
	SessionID string `mapstructure:"sessionId" json:"sessionId"`
	Confirmed bool   `mapstructure:"confirmed" json:"confirmed"`
}

var toolSchemas = map[string]configutil.Schema{
	ToolCheckAvailability: {
		Required: []string{"phoneNumber", "amount"},
		Optional: []string{"provider"},
	},
	ToolPurchase: {
		Required: []string{"phoneNumber", "amount"},
		Optional: []string{"provider", "referenceNumber"},
	},
	ToolValidatePhone: {
		Required: []string{"phoneNumber"},
	},
	ToolProcessSpeech: {
		Required: []string{"speechText"},
		Optional: []string{"sessionId"},
	},
	ToolConfirmPurchase: {
		Required: []string{"sessionId", "confirmed"},
	},
}

// toolDescriptions feed the server's tool listing.
var toolDescriptions = map[string]string{
	ToolCheckAvailability: "Check whether a pulsa denomination is available for an Indonesian phone number and quote the total price.",
	ToolPurchase:          "Purchase pulsa for an Indonesian phone number. Runs the full order, pay and status sequence.",
	ToolValidatePhone:     "Validate an Indonesian phone number and identify its mobile carrier.",
	ToolProcessSpeech:     "Process a transcribed Indonesian purchase utterance and return the next conversational step.",
	ToolConfirmPurchase:   "Confirm or cancel a pending purchase session created by process_speech_command.",
}
