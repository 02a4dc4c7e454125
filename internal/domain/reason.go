package domain

// Reason identifies why a single row was rejected. Rejections are aggregated
// into the ImportReport and never abort the rest of the file.
type Reason string

const (
	ReasonMalformedRow       Reason = "malformed_row"
	ReasonNameTooShort       Reason = "name_too_short"
	ReasonInvalidEmailFormat Reason = "invalid_email_format"
	ReasonAgeNotInteger      Reason = "age_not_integer"
	ReasonAgeOutOfRange      Reason = "age_out_of_range"
	ReasonDuplicateEmail     Reason = "duplicate_email"
)
