package bachome

import "fmt"

// UnknownObjectError means the directory has no entry for the requested
// scope/key. This is a configuration or programming error and is fatal at
// zone construction, never at runtime.
type UnknownObjectError struct {
	Scope string
	Key   string
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object: %s/%s", e.Scope, e.Key)
}

// AccessDeniedError means a write was attempted against a read-only directory
// entry. Caught before anything is put on the wire.
type AccessDeniedError struct {
	Scope string
	Key   string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("object is read-only: %s/%s", e.Scope, e.Key)
}

// TransportError wraps any network or protocol-level failure from the BACnet
// stack, including timeouts. The transport does not retry; callers decide.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bacnet %s: %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
