// internal/ledger/errors.go
package ledger

import "fmt"

// GatewayError is a failed read or RPC call against the ledger network.
type GatewayError struct {
	Method  string
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("ledger %s failed: %s", e.Method, e.Message)
	}
	return fmt.Sprintf("ledger %s failed (%s): %s", e.Method, e.Code, e.Message)
}

// SubmitError is a submission the network did not fully apply.
type SubmitError struct {
	EngineResult string
	Message      string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("Transaction submission failed: %s", e.Message)
}
