package verification

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"certguard/internal/credential/models"
)

// Attest returns a deterministic content fingerprint of rec: "0x" followed by
// the hex BLAKE2b-256 digest of its identifying fields joined with "|".
// It is not a signature.
func Attest(rec models.CredentialRecord) string {
	canonical := strings.Join([]string{
		rec.CertificateID,
		rec.StudentName,
		rec.RollNumber,
		rec.USN,
		rec.Institution,
		rec.Course,
		strconv.Itoa(rec.YearOfPassing),
		rec.Grade,
		rec.Type,
	}, "|")
	sum := blake2b.Sum256([]byte(canonical))
	return "0x" + hex.EncodeToString(sum[:])
}
