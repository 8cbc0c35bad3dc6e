package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile maps to the patient_profile table. The profile references its
// account; the account has no knowledge of the profile.
type Profile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FormatPatientID renders a sequence number as the human-readable patient
// identifier, e.g. 7 -> "P000007".
func FormatPatientID(seq int64) string {
	return fmt.Sprintf("P%06d", seq)
}
