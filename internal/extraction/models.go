package extraction

// Document describes a submitted file as the extraction provider sees it.
type Document struct {
	Name     string
	MIMEType string
	Size     int64
}

// Result is the best-effort structured reading of a submitted document.
type Result struct {
	StudentName   string `json:"student_name" yaml:"student_name"`
	CertificateID string `json:"certificate_id" yaml:"certificate_id"`
	RollNumber    string `json:"roll_number,omitempty" yaml:"roll_number,omitempty"`
	Institution   string `json:"institution" yaml:"institution"`
	Course        string `json:"course" yaml:"course"`
	YearOfPassing int    `json:"year_of_passing" yaml:"year_of_passing"`
	Grade         string `json:"grade" yaml:"grade"`
	Type          string `json:"type" yaml:"type"`

	// Rule names the rule or fallback that produced the result.
	Rule string `json:"rule" yaml:"-"`
	// Degraded is set when nothing specific could be read.
	Degraded bool `json:"degraded,omitempty" yaml:"-"`
}

// Keys returns the identifiers to resolve, in order.
func (r Result) Keys() []string {
	keys := make([]string, 0, 2)
	if r.CertificateID != "" {
		keys = append(keys, r.CertificateID)
	}
	if r.RollNumber != "" && r.RollNumber != r.CertificateID {
		keys = append(keys, r.RollNumber)
	}
	return keys
}
