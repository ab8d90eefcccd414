package statement

import (
	"regexp"
	"strings"
)

// MpesaDetails are the structured identifiers pulled out of an M-Pesa style
// narrative of the form "MPS <mobile> <ref> <shortcode>#<student_id> <name>".
// Extraction is best effort: absent fields stay empty, and no field is
// authoritative on its own; the matcher still validates the student ID
// against the school's student records.
type MpesaDetails struct {
	MobileNumber   string `json:"mobile_number,omitempty"`
	MpesaReference string `json:"mpesa_reference,omitempty"`
	BusinessNumber string `json:"business_number,omitempty"`
	StudentID      string `json:"student_id,omitempty"`
	Name           string `json:"name,omitempty"`
}

var (
	// BUSINESS_SHORTCODE#STUDENT_ID, the M-Pesa account-reference convention.
	defaultStudentIDRe = regexp.MustCompile(`#(\d+)`)

	mobileRe          = regexp.MustCompile(`\b254\d{9}\b`)
	mpesaRefTokenRe   = regexp.MustCompile(`\b[A-Z0-9]{8,12}\b`)
	mpesaRefShapeRe   = regexp.MustCompile(`^[A-Z]{2,}[A-Z0-9]+$`)
	businessStudentRe = regexp.MustCompile(`(\d+)#(\d+)`)
	payerNameRe       = regexp.MustCompile(`\d+#\d+\s+(.+)$`)
	bankRefFallbackRe = regexp.MustCompile(`\b[A-Z0-9]{8,15}\b`)
)

type studentIDExtractor func(reference string) string

// studentIDExtractors builds the ordered strategy chain: the pattern's custom
// regex first, then the built-in default. First non-empty result wins.
func studentIDExtractors(customPattern string) []studentIDExtractor {
	var chain []studentIDExtractor
	if customPattern != "" {
		if re, err := regexp.Compile("(?i)" + customPattern); err == nil {
			chain = append(chain, func(reference string) string {
				m := re.FindStringSubmatch(reference)
				if m == nil {
					return ""
				}
				if len(m) > 1 {
					return m[1]
				}
				return m[0]
			})
		}
	}
	chain = append(chain, func(reference string) string {
		m := defaultStudentIDRe.FindStringSubmatch(reference)
		if m == nil {
			return ""
		}
		return m[1]
	})
	return chain
}

// ExtractStudentID pulls a student admission number out of narrative text.
// The custom pattern's first capture group wins (whole match if it has no
// group); the "#digits" default covers the M-Pesa convention when the custom
// pattern yields nothing.
func ExtractStudentID(customPattern, reference string) string {
	if reference == "" {
		return ""
	}
	for _, extract := range studentIDExtractors(customPattern) {
		if id := extract(reference); id != "" {
			return id
		}
	}
	return ""
}

// ExtractMpesaDetails parses an M-Pesa narrative. The reference is the first
// 8-12 character alphanumeric token starting with at least two letters, which
// skips mobile numbers and plain digit runs.
func ExtractMpesaDetails(narrative string) MpesaDetails {
	var details MpesaDetails
	if narrative == "" {
		return details
	}

	for _, token := range mpesaRefTokenRe.FindAllString(narrative, -1) {
		if mpesaRefShapeRe.MatchString(token) {
			details.MpesaReference = token
			break
		}
	}
	details.MobileNumber = mobileRe.FindString(narrative)
	if m := businessStudentRe.FindStringSubmatch(narrative); m != nil {
		details.BusinessNumber = m[1]
		details.StudentID = m[2]
	}
	if m := payerNameRe.FindStringSubmatch(narrative); m != nil {
		details.Name = strings.TrimSpace(m[1])
	}
	return details
}

// extractBankReference is the last-resort duplicate-detection key: any
// alphanumeric token in the narrative when the pattern has no transaction
// reference column and the narrative has no M-Pesa reference.
func extractBankReference(narrative string) string {
	return bankRefFallbackRe.FindString(narrative)
}
