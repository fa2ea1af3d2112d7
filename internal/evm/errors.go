package evm

import "fmt"

// NetworkError covers transport failures and elapsed deadlines on any
// outbound HTTP call.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RPCError is an error object carried inside a JSON-RPC response.
type RPCError struct {
	Op      string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", e.Op, e.Code, e.Message)
}
