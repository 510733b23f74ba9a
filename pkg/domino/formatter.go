// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"fmt"
	"strings"
)

// FormatFunction returns the human-readable name for a function code
func FormatFunction(function byte) string {
	switch function {
	case FuncWrite:
		return "WRITE"
	case FuncReadStatus:
		return "READ_STATUS"
	case FuncReadOutputs:
		return "READ_OUTPUTS"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", function)
	}
}

// FormatBytes renders data as space separated hex, 16 bytes per line
func FormatBytes(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			if i%16 == 0 {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatFrame formats a request frame into a one-line description
func FormatFrame(f Frame) string {
	d1, d2 := f.Data()
	return fmt.Sprintf("%s (0x%02X) module=%d data=%02X %02X chk=%02X [%s]",
		FormatFunction(f.Function()), f.Function(), f.Module(), d1, d2, f[6], FormatBytes(f.Bytes()))
}

// FormatResponse formats a validated response
func FormatResponse(r Response) string {
	if r.Empty() {
		return fmt.Sprintf("NO_DATA [%s]", FormatBytes(r.Bytes()))
	}
	d1, d2 := r.Data()
	return fmt.Sprintf("status=0x%02X data=%02X %02X word=%d [%s]", r.Status(), d1, d2, r.Word(), FormatBytes(r.Bytes()))
}

// FormatExchange formats one observed exchange
func FormatExchange(e Exchange) string {
	timestamp := e.Time.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] TX %s\n", timestamp, FormatFrame(e.Request))

	switch {
	case e.Err != nil && len(e.Response) == 0:
		result += fmt.Sprintf("           RX error: %v (%s)\n", e.Err, e.Duration)
	case e.Err != nil:
		result += fmt.Sprintf("           RX [%s] error: %v (%s)\n", FormatBytes(e.Response), e.Err, e.Duration)
	default:
		resp, err := ValidateResponse(e.Response)
		if err != nil {
			result += fmt.Sprintf("           RX [%s] %v\n", FormatBytes(e.Response), err)
		} else {
			result += fmt.Sprintf("           RX %s (%s)\n", FormatResponse(resp), e.Duration)
		}
	}
	return result
}
