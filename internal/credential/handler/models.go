package handler

import (
	"time"

	"certguard/internal/credential/models"
	"certguard/internal/ledger"
	"certguard/internal/verification"
)

// AddRecordRequest is the body of POST /v1/records.
type AddRecordRequest struct {
	StudentName   string `json:"student_name"`
	CertificateID string `json:"certificate_id"`
	RollNumber    string `json:"roll_number"`
	USN           string `json:"usn"`
	Institution   string `json:"institution"`
	College       string `json:"college"`
	Course        string `json:"course"`
	YearOfPassing int    `json:"year_of_passing"`
	Grade         string `json:"grade"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	VerifiedDate  string `json:"verified_date"`

	record models.CredentialRecord
}

// Validate normalizes the request and checks the resulting record.
func (r *AddRecordRequest) Validate() error {
	r.record = models.CredentialRecord{
		StudentName:   r.StudentName,
		CertificateID: r.CertificateID,
		RollNumber:    r.RollNumber,
		USN:           r.USN,
		Institution:   r.Institution,
		College:       r.College,
		Course:        r.Course,
		YearOfPassing: r.YearOfPassing,
		Grade:         r.Grade,
		Type:          r.Type,
		Status:        models.RecordStatus(r.Status),
		VerifiedDate:  r.VerifiedDate,
	}.Normalize()
	return r.record.Validate()
}

func (r *AddRecordRequest) toRecord() models.CredentialRecord {
	return r.record
}

type listResponse struct {
	Records []models.CredentialRecord `json:"records"`
	Count   int                       `json:"count"`
}

type detailsResponse struct {
	models.CredentialRecord
	Attestation string `json:"attestation"`
}

func toDetailsResponse(rec models.CredentialRecord) detailsResponse {
	return detailsResponse{CredentialRecord: rec, Attestation: verification.Attest(rec)}
}

type systemInfo struct {
	Version           string `json:"version"`
	TotalCertificates int    `json:"total_certificates"`
}

type exportResponse struct {
	Records    []models.CredentialRecord `json:"records"`
	Stats      ledger.Stats              `json:"stats"`
	Ledger     []ledger.Entry            `json:"ledger"`
	ExportedAt time.Time                 `json:"exported_at"`
	SystemInfo systemInfo                `json:"system_info"`
}
