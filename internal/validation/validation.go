// Package validation enforces the on-the-wire shape of marketplace
// entities before any write reaches storage. Field-level rules are
// declared as struct tags on the request types and checked with
// go-playground/validator; rules the tag language cannot express
// (single-lead members, priority-equipment coupling, blank photo URLs)
// are checked by hand.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/glasshq/glass-server/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// checkStruct runs tag-driven validation and rewrites the failures into
// per-field ValidationErrors with human-readable messages.
func checkStruct(s any) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		var errs ValidationErrors
		errs.Add("", "", err.Error())
		return errs
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), structName(s)+".")
		value := fmt.Sprintf("%v", fe.Value())

		var message string
		switch fe.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = "must be at least " + fe.Param() + " characters"
		case "max":
			message = "must be at most " + fe.Param() + " characters"
		case "email":
			message = "must be a valid email address"
		case "url":
			message = "must be a valid URL"
		default:
			message = "is invalid"
		}
		errs.Add(field, value, message)
	}
	return errs
}

func structName(s any) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// checkPhotos rejects photo entries with a blank URL. Blank URLs are
// additionally filtered on read, but a payload carrying one is a caller
// bug worth surfacing.
func checkPhotos(errs *ValidationErrors, field string, photos []domain.Photo) {
	for i, p := range photos {
		if strings.TrimSpace(p.URL) == "" {
			errs.Add(fmt.Sprintf("%s[%d].url", field, i), p.URL, "must not be blank")
		}
	}
}

// checkLeads enforces the single-lead invariant on a member list.
func checkLeads(errs *ValidationErrors, members []domain.Member) {
	leads := 0
	for _, m := range members {
		if m.Lead {
			leads++
		}
	}
	if leads > 1 {
		errs.Add("members", "", "at most one member may be the lead")
	}
}

// ValidateCreateLab validates a lab creation payload.
func ValidateCreateLab(req *domain.CreateLabRequest) error {
	errs := checkStruct(req)
	checkPhotos(&errs, "photos", req.Photos)
	return errs.OrNil()
}

// ValidateUpdateLab validates a lab patch. Only fields present in the
// patch are checked.
func ValidateUpdateLab(req *domain.UpdateLabRequest) error {
	errs := checkStruct(req)
	checkPhotos(&errs, "photos", req.Photos)
	// Priority flags are computed by membership in the full equipment
	// list, so a patch cannot name priorityEquipment alone.
	if req.PriorityEquipment != nil && req.Equipment == nil {
		errs.Add("priorityEquipment", "", "requires equipment in the same patch")
	}
	return errs.OrNil()
}

// ValidateCreateTeam validates a team creation payload.
func ValidateCreateTeam(req *domain.CreateTeamRequest) error {
	errs := checkStruct(req)
	checkPhotos(&errs, "photos", req.Photos)
	checkLeads(&errs, req.Members)
	return errs.OrNil()
}

// ValidateUpdateTeam validates a team patch.
func ValidateUpdateTeam(req *domain.UpdateTeamRequest) error {
	errs := checkStruct(req)
	checkPhotos(&errs, "photos", req.Photos)
	if req.Members != nil {
		checkLeads(&errs, req.Members)
	}
	return errs.OrNil()
}
