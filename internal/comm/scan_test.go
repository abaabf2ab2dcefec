package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeScanResultObject(t *testing.T) {
	res := DecodeScanResult([]byte(`{"success":true,"cardNo":"04A1B2C3"}`))

	assert.True(t, res.Success)
	assert.Equal(t, "04A1B2C3", res.CardNo)
	assert.Equal(t, "04A1B2C3", res.Uid())
}

func TestDecodeScanResultDoubleEncoded(t *testing.T) {
	// some firmware sends the object wrapped in a JSON string
	raw := []byte(`"{\"success\":true,\"cardNo\":\"04A1B2C3\"}"`)
	res := DecodeScanResult(raw)

	assert.True(t, res.Success)
	assert.Equal(t, "04A1B2C3", res.CardNo)
}

func TestDecodeScanResultFailurePayload(t *testing.T) {
	res := DecodeScanResult([]byte(`{"success":false,"error":"timeout"}`))

	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Error)
}

func TestDecodeScanResultGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", `"not json either"`, "{truncated"} {
		res := DecodeScanResult([]byte(raw))
		assert.False(t, res.Success, "payload %q must decode as a failed read", raw)
	}
}

func TestUidPrefersCardNoOverRfUid(t *testing.T) {
	res := ScanResult{Success: true, CardNo: "04A1B2C3", RfUid: "F00D"}
	assert.Equal(t, "04A1B2C3", res.Uid())

	res = ScanResult{Success: true, RfUid: "F00D"}
	assert.Equal(t, "F00D", res.Uid())

	assert.Empty(t, ScanResult{Success: true}.Uid())
}
