package token

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenID is 0x01..0x20 in display order.
var testTokenID = func() string {
	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return hex.EncodeToString(b)
}()

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func reversedHex(t *testing.T, s string) []byte {
	return reversed(mustHex(t, s))
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("alp")
	require.NoError(t, err)
	assert.Equal(t, ProtocolALP, p)

	p, err = ParseProtocol(" SLP ")
	require.NoError(t, err)
	assert.Equal(t, ProtocolSLP, p)

	_, err = ParseProtocol("NFT1")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestALPSend_Encoding(t *testing.T) {
	got, err := SendScript(ProtocolALP, testTokenID, []uint64{1000})
	require.NoError(t, err)

	var section []byte
	section = append(section, "SLP2"...)
	section = append(section, 0x00, 0x04)
	section = append(section, "SEND"...)
	section = append(section, reversedHex(t, testTokenID)...)
	section = append(section, 0x01, 0xe8, 0x03, 0, 0, 0, 0)
	require.Len(t, section, 49)

	want := append([]byte{0x6a, 0x50, byte(len(section))}, section...)
	assert.Equal(t, hex.EncodeToString(want), hex.EncodeToString(got))
}

func TestALPBurnWithChange_TwoSections(t *testing.T) {
	got, err := BurnScript(ProtocolALP, testTokenID, 300, 700)
	require.NoError(t, err)

	burn, err := ALPBurnSection(testTokenID, 300)
	require.NoError(t, err)
	send, err := ALPSendSection(testTokenID, []uint64{700})
	require.NoError(t, err)

	want := []byte{0x6a, 0x50, byte(len(burn))}
	want = append(want, burn...)
	want = append(want, byte(len(send)))
	want = append(want, send...)
	assert.Equal(t, want, got)

	// Burn section: header, id, 6-byte amount, no count byte.
	assert.Equal(t, 4+1+5+32+6, len(burn))
	assert.Equal(t, []byte{0x2c, 0x01, 0, 0, 0, 0}, burn[len(burn)-6:])

	only, err := BurnScript(ProtocolALP, testTokenID, 300, 0)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x6a, 0x50, byte(len(burn))}, burn...), only)
}

func TestALPMint_KeepsBaton(t *testing.T) {
	got, err := MintScript(ProtocolALP, testTokenID, 5)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), got[len(got)-1], "one baton re-emitted")
	assert.True(t, bytes.Contains(got, []byte("MINT")))
	assert.Equal(t, []byte{0x01, 0x05, 0, 0, 0, 0, 0, 0x01}, got[len(got)-8:])
}

func TestALPGenesis_Layout(t *testing.T) {
	info := GenesisInfo{Ticker: "TKN", Name: "Token", URL: "u", Decimals: 2}
	sec, err := ALPGenesisSection(info, []uint64{10}, 1)
	require.NoError(t, err)

	var want []byte
	want = append(want, "SLP2"...)
	want = append(want, 0x00, 0x07)
	want = append(want, "GENESIS"...)
	want = append(want, 0x03, 'T', 'K', 'N')
	want = append(want, 0x05, 'T', 'o', 'k', 'e', 'n')
	want = append(want, 0x01, 'u')
	want = append(want, 0x00) // data
	want = append(want, 0x00) // auth pubkey
	want = append(want, 0x02) // decimals
	want = append(want, 0x01, 10, 0, 0, 0, 0, 0)
	want = append(want, 0x01) // batons
	assert.Equal(t, want, sec)

	fixed, err := GenesisScript(ProtocolALP, info, 10, false)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), fixed[len(fixed)-1], "fixed supply has no baton")
}

func TestALP_AmountLimits(t *testing.T) {
	_, err := SendScript(ProtocolALP, testTokenID, []uint64{1 << 48})
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = SendScript(ProtocolALP, testTokenID, make([]uint64, 30))
	assert.ErrorIs(t, err, ErrTooManyOutputs)

	_, err = SendScript(ProtocolALP, testTokenID, make([]uint64, 29))
	assert.NoError(t, err, "29 outputs fit in 223 bytes")

	_, err = SendScript(ProtocolALP, testTokenID, nil)
	assert.ErrorIs(t, err, ErrNoAmounts)

	_, err = ALPBurnSection(testTokenID, 0)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestInvalidTokenID(t *testing.T) {
	for _, id := range []string{"", "abcd", strings.Repeat("zz", 32)} {
		_, err := SendScript(ProtocolSLP, id, []uint64{1})
		assert.ErrorIs(t, err, ErrInvalidTokenID)
		_, err = SendScript(ProtocolALP, id, []uint64{1})
		assert.ErrorIs(t, err, ErrInvalidTokenID)
	}
	assert.NoError(t, ValidateTokenID(testTokenID))
}

func TestSLPSend_Encoding(t *testing.T) {
	got, err := SendScript(ProtocolSLP, testTokenID, []uint64{1000, 1})
	require.NoError(t, err)

	want := "6a" + "04534c5000" + "0101" + "0453454e44" +
		"20" + testTokenID +
		"08" + "00000000000003e8" +
		"08" + "0000000000000001"
	assert.Equal(t, want, hex.EncodeToString(got))

	_, err = SendScript(ProtocolSLP, testTokenID, make([]uint64, 20))
	assert.ErrorIs(t, err, ErrTooManyOutputs)
}

func TestSLPMint_BatonVout(t *testing.T) {
	got, err := MintScript(ProtocolSLP, testTokenID, 7)
	require.NoError(t, err)
	want := "6a" + "04534c5000" + "0101" + "044d494e54" +
		"20" + testTokenID +
		"0102" +
		"08" + "0000000000000007"
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestSLPGenesis_EmptyFieldsUsePushdata1(t *testing.T) {
	info := GenesisInfo{Ticker: "T", Name: "N", Decimals: 0}
	got, err := GenesisScript(ProtocolSLP, info, 100, false)
	require.NoError(t, err)

	want := "6a" + "04534c5000" + "0101" + "0747454e45534953" +
		"0154" + "014e" +
		"4c00" + // url
		"4c00" + // document hash
		"0100" + // decimals
		"4c00" + // no baton
		"08" + "0000000000000064"
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestSLPBurn(t *testing.T) {
	got, err := BurnScript(ProtocolSLP, testTokenID, 9, 0)
	require.NoError(t, err)
	assert.Contains(t, hex.EncodeToString(got), "044255524e")

	withChange, err := BurnScript(ProtocolSLP, testTokenID, 9, 1)
	require.NoError(t, err)
	assert.Contains(t, hex.EncodeToString(withChange), "0453454e44", "change expressed as SEND")
}

func TestGenesisInfo_Validate(t *testing.T) {
	assert.ErrorIs(t, GenesisInfo{Decimals: 10}.Validate(), ErrInvalidGenesis)
	assert.ErrorIs(t, GenesisInfo{DocHash: []byte{1}}.Validate(), ErrInvalidGenesis)
	assert.ErrorIs(t, GenesisInfo{AuthPubKey: []byte{2, 3}}.Validate(), ErrInvalidGenesis)
	assert.NoError(t, GenesisInfo{Ticker: "X", Decimals: 9}.Validate())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"1.5", 2, 150, false},
		{"12", 0, 12, false},
		{".5", 1, 5, false},
		{"1.", 2, 100, false},
		{"0.001", 2, 0, true},
		{"abc", 0, 0, true},
		{"-1", 0, 0, true},
		{"", 2, 0, true},
		{"18446744073709551616", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.decimals)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "123.45", FormatAmount(12345, 2))
	assert.Equal(t, "1", FormatAmount(100, 2))
	assert.Equal(t, "0.005", FormatAmount(5, 3))
	assert.Equal(t, "0", FormatAmount(0, 2))
	assert.Equal(t, "42", FormatAmount(42, 0))
}

func TestMessageScript(t *testing.T) {
	got, err := MessageScript("hi")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6a, 0x02, 'h', 'i'}, got)

	long, err := MessageScript(strings.Repeat("a", MaxMessageLen))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6a, 0x4c, 220}, long[:3])
	assert.LessOrEqual(t, len(long), MaxOpReturnSize)

	_, err = MessageScript(strings.Repeat("a", MaxMessageLen+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = MessageScript("")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendScriptWithMemo(t *testing.T) {
	plain, err := SendScript(ProtocolALP, testTokenID, []uint64{1000})
	require.NoError(t, err)
	same, err := SendScriptWithMemo(ProtocolALP, testTokenID, []uint64{1000}, "")
	require.NoError(t, err)
	assert.Equal(t, plain, same)

	got, err := SendScriptWithMemo(ProtocolALP, testTokenID, []uint64{1000}, "gm")
	require.NoError(t, err)
	send, err := ALPSendSection(testTokenID, []uint64{1000})
	require.NoError(t, err)
	want := []byte{0x6a, 0x50, byte(len(send))}
	want = append(want, send...)
	want = append(want, 0x02, 'g', 'm')
	assert.Equal(t, want, got)

	_, err = SendScriptWithMemo(ProtocolSLP, testTokenID, []uint64{1000}, "gm")
	assert.ErrorIs(t, err, ErrMemoUnsupported)
	_, err = SendScriptWithMemo(ProtocolALP, testTokenID, []uint64{1000}, "SLP2 lookalike")
	assert.ErrorIs(t, err, ErrMemoUnsupported)

	// 52 bytes of send leave room for a 169 byte memo behind OP_PUSHDATA1.
	fits, err := SendScriptWithMemo(ProtocolALP, testTokenID, []uint64{1000}, strings.Repeat("m", 169))
	require.NoError(t, err)
	assert.Len(t, fits, MaxOpReturnSize)
	_, err = SendScriptWithMemo(ProtocolALP, testTokenID, []uint64{1000}, strings.Repeat("m", 170))
	assert.ErrorIs(t, err, ErrTooManyOutputs)
}
