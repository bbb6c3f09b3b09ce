package infos

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Decode turns the raw Modbus register bytes for e into a typed Value,
// applying e's ratio/offset to numeric formats. It reports false for a
// byte slice too short for the format, which callers fold into
// Invalid_Data_Type.
func (e Entry) Decode(raw []byte) (Value, bool) {
	switch e.Fmt {
	case FmtUint8:
		if len(raw) < 1 {
			return Value{}, false
		}
		return numericValue(e, float64(raw[0])), true

	case FmtUint16:
		if len(raw) < 2 {
			return Value{}, false
		}
		return numericValue(e, float64(binary.BigEndian.Uint16(raw))), true

	case FmtInt16:
		if len(raw) < 2 {
			return Value{}, false
		}
		return numericValue(e, float64(int16(binary.BigEndian.Uint16(raw)))), true

	case FmtUint32:
		if len(raw) < 4 {
			return Value{}, false
		}
		return numericValue(e, float64(binary.BigEndian.Uint32(raw))), true

	case FmtInt32:
		if len(raw) < 4 {
			return Value{}, false
		}
		return numericValue(e, float64(int32(binary.BigEndian.Uint32(raw)))), true

	case FmtUTF8:
		return StringValue(decodeUTF8(raw)), true

	case FmtMac:
		if len(raw) < 6 {
			return Value{}, false
		}
		return StringValue(decodeMac(raw)), true

	case FmtVersion:
		if len(raw) < 2 {
			return Value{}, false
		}
		return StringValue(decodeVersion(raw)), true

	case FmtHex4:
		if len(raw) < 2 {
			return Value{}, false
		}
		return StringValue(fmt.Sprintf("%02x%02x", raw[0], raw[1])), true

	case FmtConst:
		return e.Const, true

	default:
		return Value{}, false
	}
}

// numericValue applies the entry's ratio/offset to a raw numeric reading.
// An entry with neither Ratio nor Offset set (both zero) yields an
// integer Value so that unscaled registers (status bits, enums)
// round-trip as plain ints; any explicit Ratio, even 1, yields a float.
func numericValue(e Entry, raw float64) Value {
	if e.Ratio == 0 && e.Offset == 0 {
		return IntValue(int64(raw))
	}
	return FloatValue(raw*e.ratio() + e.Offset)
}

func decodeUTF8(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00")
}

func decodeMac(raw []byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		raw[0], raw[1], raw[2], raw[3], raw[4], raw[5])
}

// decodeVersion unpacks a 2 byte firmware version as major.minor, matching
// the collector firmware's packed-byte version scheme.
func decodeVersion(raw []byte) string {
	return fmt.Sprintf("%d.%02d", raw[0], raw[1])
}
