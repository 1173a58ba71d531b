package verification

import (
	"fmt"
	"time"

	"certguard/internal/credential/models"
	"certguard/internal/extraction"
)

// Resolve finds the record an extraction refers to. Each extracted key is
// tried in order and resolved against certificate_id, roll_number, then usn.
func Resolve(ext extraction.Result, view models.RecordView) (models.CredentialRecord, bool) {
	for _, key := range ext.Keys() {
		if rec, ok := view.Lookup(key); ok {
			return rec, true
		}
	}
	return models.CredentialRecord{}, false
}

// Verify decides the outcome for ext against view. It has no side effects
// and never fails: an unresolved identifier is itself a result.
func Verify(ext extraction.Result, view models.RecordView, at time.Time) Outcome {
	out := Outcome{
		Extraction: ext,
		Timestamp:  at,
	}

	rec, ok := Resolve(ext, view)
	if !ok {
		out.Status = StatusNotFound
		out.Confidence = 0
		out.Message = notFoundMessage(ext)
		return out
	}

	matched := rec
	out.MatchedRecord = &matched

	expected := NormalizeName(rec.StudentName)
	found := NormalizeName(ext.StudentName)
	if expected == found {
		out.Status = StatusVerified
		out.Confidence = verifiedConfidence(ext, rec)
		out.Message = "certificate is authentic and matches the issued record"
		out.Attestation = Attest(rec)
		return out
	}

	out.Status = StatusForged
	out.Confidence = forgedConfidence(expected, found)
	out.ExpectedName = rec.StudentName
	out.FoundName = ext.StudentName
	out.Message = fmt.Sprintf("identifier %s was issued to %q, not %q", rec.CertificateID, rec.StudentName, ext.StudentName)
	return out
}

func notFoundMessage(ext extraction.Result) string {
	keys := ext.Keys()
	if ext.Degraded || len(keys) == 0 {
		return "no credential identifier could be read from the document"
	}
	return fmt.Sprintf("certificate id %q is not in the credential registry", keys[0])
}
