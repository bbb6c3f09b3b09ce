package gen3plus

import "errors"

// Sentinel errors surfaced by the frame codec, the connection's
// dispatch loop and the embedded Modbus client. Handlers compare
// against these with errors.Is rather than parsing message text.
var (
	// ErrInvalidFraming marks a command frame whose payload is empty or
	// too short for its frame type.
	ErrInvalidFraming = errors.New("gen3plus: invalid frame")

	// ErrUnknownControlCode is returned by the command-request handler
	// for a frame type (ftype) other than AT (0x01) or Modbus (0x02).
	ErrUnknownControlCode = errors.New("gen3plus: unknown control code")

	// ErrAuthRequired marks a device-indication whose logger serial
	// differs from the one the connection first saw, once maxUnknownSNR
	// such frames have arrived.
	ErrAuthRequired = errors.New("gen3plus: serial number not yet authorised")

	// ErrPeerClosed mirrors the original's RuntimeError("Peer closed.")
	// raised when a read returns zero bytes on an open socket.
	ErrPeerClosed = errors.New("gen3plus: peer closed")

	// ErrATCommandBlocked marks an AT command rejected by the ACL.
	ErrATCommandBlocked = errors.New("gen3plus: AT command blocked by ACL")

	// ErrModbusTimeout marks a Modbus request that never received a
	// matching response before its deadline.
	ErrModbusTimeout = errors.New("gen3plus: modbus request timed out")

	// ErrModbusFault marks an unusable Modbus response: too short, bad
	// CRC, wrong function code, or an exception response (function code
	// with the 0x80 error bit set).
	ErrModbusFault = errors.New("gen3plus: modbus exception response")
)
