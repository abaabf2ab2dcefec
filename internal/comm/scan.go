package comm

import (
	"bytes"
	"encoding/json"
)

// ScanResult is the decoded outcome of one NFC read request. The POS
// bridge is not uniform in how it delivers it: some firmware versions
// send a JSON object, others a JSON string wrapping the same object.
// DecodeScanResult absorbs both so nothing downstream branches on shape.
type ScanResult struct {
	Success bool   `json:"success"`
	CardNo  string `json:"cardNo,omitempty"`
	RfUid   string `json:"rfUid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Uid returns the usable card identifier, preferring cardNo over the
// raw rfUid. Empty means the read succeeded but the card carries no
// identifier we can use.
func (r ScanResult) Uid() string {
	if r.CardNo != "" {
		return r.CardNo
	}
	return r.RfUid
}

// DecodeScanResult parses a raw bridge payload. Anything unparsable is
// treated as a failed read, never as an error to propagate.
func DecodeScanResult(raw []byte) ScanResult {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return ScanResult{}
	}

	// double-encoded variant: a JSON string holding the JSON object
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return ScanResult{}
		}
		data = []byte(inner)
	}

	var res ScanResult
	if err := json.Unmarshal(data, &res); err != nil {
		return ScanResult{}
	}

	return res
}
