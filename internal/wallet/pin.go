package wallet

import "golang.org/x/crypto/bcrypt"

// HashPin derives a one-way hash of the transaction PIN for storage.
func HashPin(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

// VerifyPin checks a plain-text PIN against the stored hash. Every debit on a
// sender's behalf must pass this gate before any balance mutation.
func VerifyPin(pin string, hash []byte) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pin)) == nil
}
