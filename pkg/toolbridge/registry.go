package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tyo-it/pulsa-bridge/pkg/configutil"
	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
	"github.com/tyo-it/pulsa-bridge/pkg/orchestrator"
	"github.com/tyo-it/pulsa-bridge/pkg/phone"
)

// UnknownToolError reports a call to a tool the bridge does not serve.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Registry validates, decodes and dispatches tool calls. Results are
// JSON payloads rendered as text.
type Registry struct {
	pipeline orchestrator.Pipeline
	orch     *orchestrator.Orchestrator
	logger   *slog.Logger
}

func NewRegistry(pipeline orchestrator.Pipeline, orch *orchestrator.Orchestrator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{pipeline: pipeline, orch: orch, logger: logger}
}

// Names lists the tools the registry serves, in serving order.
func (r *Registry) Names() []string {
	return []string{
		ToolProcessSpeech,
		ToolConfirmPurchase,
		ToolCheckAvailability,
		ToolPurchase,
		ToolValidatePhone,
	}
}

// Description returns the human-readable purpose of a tool.
func (r *Registry) Description(name string) string {
	return toolDescriptions[name]
}

// Handle runs one tool call. Argument maps are schema-checked before
// decoding so a malformed call fails with the offending keys named.
func (r *Registry) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	schema, ok := toolSchemas[name]
	if !ok {
		return "", errorsx.Wrap(&UnknownToolError{Name: name}, errorsx.ReasonUnknownTool)
	}
	if err := configutil.ValidateSettings(args, schema); err != nil {
		return "", errorsx.Newf(errorsx.ReasonValidation, "%s: invalid arguments: %v", name, err)
	}

	result, err := r.dispatch(ctx, name, args)
	if err != nil {
		r.logger.Warn("tool_call_failed", "tool", name, "reason", string(errorsx.Reason(err)), "error", err)
		return "", err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("%s: encode result: %w", name, err)
	}
	return string(payload), nil
}

func (r *Registry) dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolCheckAvailability:
		var a CheckAvailabilityArgs
		if err := configutil.DecodeSettings(args, &a); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonValidation)
		}
		avail, err := r.pipeline.CheckAvailability(ctx, a.PhoneNumber, a.Amount)
		if err != nil {
			return nil, err
		}
		return avail, nil

	case ToolPurchase:
		var a PurchaseArgs
		if err := configutil.DecodeSettings(args, &a); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonValidation)
		}
		return r.pipeline.Purchase(ctx, gateway.PurchaseRequest{
			PhoneNumber:     a.PhoneNumber,
			Amount:          a.Amount,
			Provider:        a.Provider,
			ReferenceNumber: a.ReferenceNumber,
		})

	case ToolValidatePhone:
		var a ValidatePhoneArgs
		if err := configutil.DecodeSettings(args, &a); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonValidation)
		}
		return phone.Validate(a.PhoneNumber), nil

	case ToolProcessSpeech:
		var a ProcessSpeechArgs
		if err := configutil.DecodeSettings(args, &a); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonValidation)
		}
		return r.orch.HandleUtterance(ctx, a.SessionID, a.SpeechText), nil

	case ToolConfirmPurchase:
		var a ConfirmPurchaseArgs
		if err := configutil.DecodeSettings(args, &a); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonValidation)
		}
		return r.orch.Confirm(ctx, a.SessionID, a.Confirmed)

	default:
		return nil, errorsx.Wrap(&UnknownToolError{Name: name}, errorsx.ReasonUnknownTool)
	}
}
