package ledger

import (
	"crypto/rand"
	"fmt"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewReference generates a transaction reference of the form
// TRX_<unix-millis>_<random6>. Used for locally settled records; externally
// settled transfers carry the provider-issued reference instead.
func NewReference() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for reference generation
		panic(fmt.Sprintf("ledger: read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("TRX_%d_%s", time.Now().UnixMilli(), buf)
}
