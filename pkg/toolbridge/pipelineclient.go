package toolbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
	"github.com/tyo-it/pulsa-bridge/pkg/toolproto"
)

// ToolCaller is the slice of toolproto.Client the routed pipeline
// needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) (string, error)
}

var _ ToolCaller = (*toolproto.Client)(nil)

// PipelineClient runs the transaction pipeline through a tool
// provider subprocess instead of hitting the gateway directly. It
// satisfies the same contract as *gateway.Client, so the orchestrator
// cannot tell the two apart.
type PipelineClient struct {
	caller ToolCaller
}

func NewPipelineClient(caller ToolCaller) *PipelineClient {
	return &PipelineClient{caller: caller}
}

func (p *PipelineClient) CheckAvailability(ctx context.Context, phoneNumber string, amount int64) (gateway.Availability, error) {
	text, err := p.caller.CallTool(ctx, ToolCheckAvailability, map[string]any{
		"phoneNumber": phoneNumber,
		"amount":      amount,
	})
	if err != nil {
		return gateway.Availability{}, err
	}
	var avail gateway.Availability
	if err := json.Unmarshal([]byte(text), &avail); err != nil {
		return gateway.Availability{}, fmt.Errorf("%s: decode result: %w", ToolCheckAvailability, err)
	}
	return avail, nil
}

func (p *PipelineClient) Purchase(ctx context.Context, req gateway.PurchaseRequest) (*gateway.Transaction, error) {
	args := map[string]any{
		"phoneNumber": req.PhoneNumber,
		"amount":      req.Amount,
	}
	if req.Provider != "" {
		args["provider"] = req.Provider
	}
	if req.ReferenceNumber != "" {
		args["referenceNumber"] = req.ReferenceNumber
	}
	text, err := p.caller.CallTool(ctx, ToolPurchase, args)
	if err != nil {
		return nil, err
	}
	var tx gateway.Transaction
	if err := json.Unmarshal([]byte(text), &tx); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", ToolPurchase, err)
	}
	return &tx, nil
}
