package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reference prefixes by operation.
const (
	PrefixDeposit    = "DEP"
	PrefixWithdrawal = "WTH"
	PrefixTransfer   = "TRX"
	PrefixExternal   = "EXT"
	PrefixInterest   = "INT"
)

const referenceAttempts = 5

// NewReference builds "<PREFIX>-<epoch millis>-<random>". The random part is
// 40 bits taken from a v4 UUID so two references minted in the same
// millisecond still differ.
func NewReference(prefix string, now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:5]))
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

// ReferencePrefix returns the operation prefix of a reference.
func ReferencePrefix(reference string) string {
	prefix, _, _ := strings.Cut(reference, "-")
	return prefix
}
