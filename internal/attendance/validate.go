package attendance

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

type batch struct {
	ClassID    string  `validate:"required"`
	Date       Date    `validate:"required,datetime=2006-01-02"`
	RecordedBy string  `validate:"required"`
	Entries    []Entry `validate:"required,min=1,dive"`
}

// ValidateBatch checks a commit request before it reaches storage.
func ValidateBatch(classID string, date Date, entries []Entry, recordedBy string) error {
	err := validate.Struct(batch{ClassID: classID, Date: date, RecordedBy: recordedBy, Entries: entries})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{
			Field: fieldName(fe.Namespace()),
			Error: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return NewValidationError(errors.New("invalid attendance batch"), flds...)
}

// fieldName turns "batch.Entries[0].Status" into "entries[0].status".
func fieldName(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
