package monumentfees

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math/big"
	"strings"
)

const (
	bookingCodeLength   = 8
	bookingCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	securityHashLength  = 8
)

// newBookingCode returns the short code printed on receipts and read out at
// the gate.
func newBookingCode(random io.Reader) (string, error) {
	var b strings.Builder
	b.Grow(bookingCodeLength)
	limit := big.NewInt(int64(len(bookingCodeAlphabet)))
	for i := 0; i < bookingCodeLength; i++ {
		n, err := rand.Int(random, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(bookingCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// securityHash binds a booking id and code to the server secret so staff can
// spot forged receipts.
func securityHash(secret, bookingID, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(bookingID))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))[:securityHashLength])
}

// lastFour keeps the trailing digits of an account number for display.
func lastFour(account string) string {
	digits := make([]byte, 0, len(account))
	for i := 0; i < len(account); i++ {
		if account[i] >= '0' && account[i] <= '9' {
			digits = append(digits, account[i])
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return string(digits)
}
