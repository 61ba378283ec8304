package accesskey_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturador/internal/accesskey"
	"github.com/rezonia/facturador/internal/model"
)

func validInput() accesskey.Input {
	return accesskey.Input{
		EmissionDate:  time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Kind:          model.KindInvoice,
		RUC:           "1790012345001",
		Environment:   model.EnvTest,
		Establishment: "001",
		EmissionPoint: "002",
		Sequence:      "000000123",
	}
}

func TestGenerateLengthAndCheckDigit(t *testing.T) {
	key, err := accesskey.Generate(validInput())
	require.NoError(t, err)
	require.Len(t, key, 49)

	for _, c := range key {
		assert.True(t, c >= '0' && c <= '9', "non-digit %q in key", c)
	}

	check, err := accesskey.CheckDigit(key[:48])
	require.NoError(t, err)
	assert.Equal(t, int(key[48]-'0'), check)
	assert.True(t, accesskey.Valid(key))
}

func TestGenerateEmbedsFields(t *testing.T) {
	in := validInput()
	in.NumericCode = "12345678"
	key, err := accesskey.Generate(in)
	require.NoError(t, err)

	assert.Equal(t, "30082026", key[0:8], "ddmmyyyy emission date")
	assert.Equal(t, "01", key[8:10], "document kind code")
	assert.Equal(t, "1790012345001", key[10:23], "ruc")
	assert.Equal(t, "1", key[23:24], "environment")
	assert.Equal(t, "001002", key[24:30], "series")
	assert.Equal(t, "000000123", key[30:39], "sequence")
	assert.Equal(t, "12345678", key[39:47], "numeric code")
	assert.Equal(t, "1", key[47:48], "emission type")
}

func TestGenerateDeterministicWithFixedCode(t *testing.T) {
	in := validInput()
	in.NumericCode = "87654321"

	a, err := accesskey.Generate(in)
	require.NoError(t, err)
	b, err := accesskey.Generate(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateFreshSaltPerCall(t *testing.T) {
	in := validInput()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, err := accesskey.Generate(in)
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key on resend of the same sequence")
		seen[key] = true
	}
}

func TestCheckDigitMapping(t *testing.T) {
	// 48 zeros: sum = 0, 11 - 0%11 = 11, maps to 0.
	zeros := make([]byte, 48)
	for i := range zeros {
		zeros[i] = '0'
	}
	check, err := accesskey.CheckDigit(string(zeros))
	require.NoError(t, err)
	assert.Equal(t, 0, check)

	// Single digit 5: weight 2, sum 10, 11-10 = 1.
	check, err = accesskey.CheckDigit("5")
	require.NoError(t, err)
	assert.Equal(t, 1, check)

	// "1": weight 2, sum 2, 11-2 = 9.
	check, err = accesskey.CheckDigit("1")
	require.NoError(t, err)
	assert.Equal(t, 9, check)

	_, err = accesskey.CheckDigit("12a4")
	require.Error(t, err)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	in := validInput()
	in.RUC = "123"
	_, err := accesskey.Generate(in)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	in = validInput()
	in.Sequence = "123"
	_, err = accesskey.Generate(in)
	require.ErrorAs(t, err, &verr)

	in = validInput()
	in.Kind = model.DocumentKind("99")
	_, err = accesskey.Generate(in)
	require.ErrorAs(t, err, &verr)

	in = validInput()
	in.NumericCode = "123"
	_, err = accesskey.Generate(in)
	require.ErrorAs(t, err, &verr)
}

func TestValid(t *testing.T) {
	assert.False(t, accesskey.Valid("123"))
	assert.False(t, accesskey.Valid(""))

	key, err := accesskey.Generate(validInput())
	require.NoError(t, err)

	// Corrupt the check digit.
	last := key[48]
	corrupted := key[:48] + string('0'+(last-'0'+1)%10)
	assert.False(t, accesskey.Valid(corrupted))
}
