package enums

// SubmissionStatus tracks the lifecycle of a queued KSeF submission. The
// literal values match the Polish statuses recorded in the database.
type SubmissionStatus string

const (
	// SubmissionStatusQueued marks a submission waiting for the next batch run.
	SubmissionStatusQueued SubmissionStatus = "DoWyslania"
	// SubmissionStatusAccepted marks a submission confirmed by KSeF.
	SubmissionStatusAccepted SubmissionStatus = "Przyjęto"
	// SubmissionStatusRejected marks a submission that exhausted its attempts.
	SubmissionStatusRejected SubmissionStatus = "Odrzucono"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

// Valid reports whether the status is one of the known lifecycle values.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusQueued, SubmissionStatusAccepted, SubmissionStatusRejected:
		return true
	}
	return false
}
