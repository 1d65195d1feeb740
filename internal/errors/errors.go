// Package errors provides the failure taxonomy for WebSocket probe runs.
package errors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
)

// Kind categorizes how a probe run ended.
type Kind int

const (
	// Unknown is an uncategorized failure.
	Unknown Kind = iota
	// HandshakeFailure means the connection was never established.
	HandshakeFailure
	// ReadFailure means a read on an established connection failed.
	ReadFailure
	// ConnectionClosed means the server closed the connection.
	ConnectionClosed
	// Cancelled means the run was stopped by its context.
	Cancelled
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case HandshakeFailure:
		return "handshake_failure"
	case ReadFailure:
		return "read_failure"
	case ConnectionClosed:
		return "connection_closed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Class is a finer diagnostic label for the underlying cause.
type Class string

// Diagnostic classes.
const (
	ClassDNS        Class = "dns"
	ClassRefused    Class = "refused"
	ClassReset      Class = "reset"
	ClassTLS        Class = "tls"
	ClassTimeout    Class = "timeout"
	ClassHTTPStatus Class = "http_status"
	ClassProtocol   Class = "protocol"
	ClassNetwork    Class = "network"
	ClassUnknown    Class = "unknown"
)

// ProbeError is a categorized probe failure.
type ProbeError struct {
	Kind       Kind
	Class      Class
	Endpoint   string
	StatusCode int // HTTP status of a rejected upgrade
	CloseCode  int // WebSocket close code, if a close frame was received
	Cause      error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s) on %s: %v", e.Kind, e.Class, e.Endpoint, e.Cause)
	}
	return fmt.Sprintf("%s (%s) on %s", e.Kind, e.Class, e.Endpoint)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Is matches another *ProbeError of the same kind.
func (e *ProbeError) Is(target error) bool {
	t, ok := target.(*ProbeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Description returns the text of the underlying failure, verbatim.
func (e *ProbeError) Description() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.String()
}

// New creates a ProbeError and classifies its cause.
func New(kind Kind, endpoint string, cause error) *ProbeError {
	return &ProbeError{
		Kind:     kind,
		Class:    classify(cause),
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(endpoint string, cause error) *ProbeError {
	if cause == nil {
		cause = context.Canceled
	}
	return &ProbeError{
		Kind:     Cancelled,
		Class:    ClassUnknown,
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// CategorizeDial converts a dial error into a ProbeError.
// statusCode is the HTTP status of the upgrade response, or 0 if none was received.
func CategorizeDial(ctx context.Context, endpoint string, err error, statusCode int) *ProbeError {
	if err == nil {
		return nil
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr
	}

	// net maps context errors to its own values, so check the context itself.
	if ctx != nil && ctx.Err() != nil {
		return NewCancelledError(endpoint, ctx.Err())
	}
	if errors.Is(err, context.Canceled) {
		return NewCancelledError(endpoint, err)
	}

	pe := New(HandshakeFailure, endpoint, err)
	if statusCode != 0 {
		pe.StatusCode = statusCode
		pe.Class = ClassHTTPStatus
	}
	return pe
}

// CategorizeRead converts a read error on an established connection into a ProbeError.
func CategorizeRead(ctx context.Context, endpoint string, err error) *ProbeError {
	if err == nil {
		return nil
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr
	}

	// A cancelled context forces an immediate read deadline, so the read
	// error itself is a timeout; the context says why.
	if ctx != nil && ctx.Err() != nil {
		return NewCancelledError(endpoint, ctx.Err())
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		pe := New(ConnectionClosed, endpoint, err)
		pe.Class = ClassProtocol
		pe.CloseCode = closeErr.Code
		return pe
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		pe := New(ConnectionClosed, endpoint, err)
		pe.Class = ClassNetwork
		return pe
	}

	return New(ReadFailure, endpoint, err)
}

// classify determines the diagnostic class of a raw error.
func classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, websocket.ErrBadHandshake) {
		return ClassHTTPStatus
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassDNS
	}

	if isTLSError(err) {
		return ClassTLS
	}

	if isTimeout(err) {
		return ClassTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "connection refused") {
		return ClassRefused
	}

	if errors.Is(err, syscall.ECONNRESET) || strings.Contains(err.Error(), "connection reset") {
		return ClassReset
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return ClassProtocol
	}

	if isNetworkError(err) {
		return ClassNetwork
	}

	return ClassUnknown
}

// isTLSError checks if an error came from the TLS layer.
func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}

	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "tls:") || strings.Contains(errStr, "x509:")
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp")
}

// Describe returns the text printed on an ERROR line for err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Description()
	}
	return err.Error()
}

// GetKind extracts the kind from an error.
func GetKind(err error) Kind {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Kind
	}
	return Unknown
}

// IsKind reports whether err is a ProbeError of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && GetKind(err) == kind
}

// IsCancelled reports whether the run was stopped by its context.
func IsCancelled(err error) bool {
	return IsKind(err, Cancelled)
}

// GetClass extracts the diagnostic class from an error.
func GetClass(err error) Class {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Class
	}
	return classify(err)
}
