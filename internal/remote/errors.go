package remote

import "fmt"

// ConnectionError is a connect, TLS or authentication failure. It always
// triggers fallback to the cache path in the orchestrator.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mailbox connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OpError is a protocol operation failure after a successful connection.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("mailbox operation %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
