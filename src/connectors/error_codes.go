package connectors

import "fmt"

// C2CErrorCodes maps the exchange error codes seen on the C2C endpoints to
// human-readable names.
var C2CErrorCodes = map[string]string{
	"000000": "SUCCESS",
	"-1000":  "UNKNOWN",                  // Unknown error while processing the request
	"-1002":  "UNAUTHORIZED",             // API key missing or not allowed for this endpoint
	"-1021":  "INVALID_TIMESTAMP",        // Timestamp outside recvWindow
	"-1022":  "INVALID_SIGNATURE",        // Request signature mismatch
	"-1102":  "MANDATORY_PARAM_EMPTY",    // Required parameter missing or malformed
	"-2014":  "BAD_API_KEY_FMT",          // API key format invalid
	"-2015":  "REJECTED_MBX_KEY",         // Invalid key, IP or permissions
	"83013":  "ADV_NOT_AVAILABLE",        // Ad taken down or fully consumed
	"83411":  "ORDER_AMOUNT_TOO_SMALL",   // Below the ad's min transaction amount
	"83412":  "ORDER_AMOUNT_TOO_LARGE",   // Above the ad's max transaction amount
	"83420":  "PRICE_CHANGED",            // Ad price moved since it was listed
	"83531":  "COUNTERPARTY_LIMIT",       // Counterparty rejected the taker profile
	"83999":  "C2C_SYSTEM_BUSY",          // Transient matching engine failure
}

// GetErrorMsg returns a human-readable name for a C2C error code.
func GetErrorMsg(code string) string {
	if msg, ok := C2CErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_CODE_%s", code)
}
