// Package accesskey computes the 49-digit technical identifier that
// names one submission attempt of a fiscal document.
package accesskey

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rezonia/facturador/internal/model"
)

// Length is the full key length including the check digit.
const Length = 49

// EmissionNormal is the only emission type this system produces
// (offline contingency emission is not supported).
const EmissionNormal = "1"

// Input carries every field concatenated into the key. All codes are
// zero-padded to their fixed widths.
type Input struct {
	EmissionDate  time.Time
	Kind          model.DocumentKind
	RUC           string
	Environment   model.Environment
	Establishment string
	EmissionPoint string
	Sequence      string
	// NumericCode is the 8-digit salt. Leave empty to draw a fresh
	// random one; every submission of the same sequence must get a
	// different code.
	NumericCode  string
	EmissionType string
}

// Generate builds the 49-digit access key. Deterministic given
// identical inputs including NumericCode; with NumericCode empty the
// salt is drawn from crypto/rand.
func Generate(in Input) (string, error) {
	if len(in.RUC) != 13 {
		return "", model.NewValidationError("ruc", "must be 13 digits")
	}
	if !in.Kind.Valid() {
		return "", model.NewValidationError("kind", "unsupported document kind code")
	}
	if len(in.Sequence) != 9 {
		return "", model.NewValidationError("sequence", "must be 9 digits")
	}
	if len(in.Establishment) != 3 || len(in.EmissionPoint) != 3 {
		return "", model.NewValidationError("series", "establishment and emission point must be 3 digits each")
	}

	code := in.NumericCode
	if code == "" {
		var err error
		code, err = randomNumericCode()
		if err != nil {
			return "", fmt.Errorf("drawing numeric code: %w", err)
		}
	}
	if len(code) != 8 {
		return "", model.NewValidationError("numericCode", "must be 8 digits")
	}

	emissionType := in.EmissionType
	if emissionType == "" {
		emissionType = EmissionNormal
	}

	body := in.EmissionDate.Format("02012006") +
		string(in.Kind) +
		in.RUC +
		string(in.Environment) +
		in.Establishment +
		in.EmissionPoint +
		in.Sequence +
		code +
		emissionType

	if len(body) != Length-1 {
		return "", fmt.Errorf("access key body has %d digits, want %d", len(body), Length-1)
	}

	check, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", body, check), nil
}

// CheckDigit computes the modulus-11 check digit of a digit string.
// Digits are weighted right to left with weights cycling 2..7; the
// digit is 11-(sum mod 11), mapped 11 to 0 and 10 to 1.
func CheckDigit(digits string) (int, error) {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, model.NewValidationError("accessKey", "must contain only digits")
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	check := 11 - sum%11
	switch check {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	}
	return check, nil
}

// Valid reports whether key is 49 digits whose last digit equals the
// check digit of the preceding 48.
func Valid(key string) bool {
	if len(key) != Length {
		return false
	}
	check, err := CheckDigit(key[:Length-1])
	if err != nil {
		return false
	}
	return int(key[Length-1]-'0') == check
}

func randomNumericCode() (string, error) {
	max := big.NewInt(100000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", n), nil
}
