package ops

import "context"

// ReportPingInput contains parameters for the ReportPing operation.
type ReportPingInput struct {
	Device string `json:"device"`
}

// ReportPing records a device heartbeat.
func ReportPing(ctx context.Context, eng Engine, input ReportPingInput) (*ActivityOutput, error) {
	device, err := ValidateDevice(input.Device)
	if err != nil {
		return nil, err
	}
	a, err := eng.ReportPing(ctx, device)
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Activity: a}, nil
}
