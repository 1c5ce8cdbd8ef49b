package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"sacrifice-website/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

var (
	mobilePattern        = regexp.MustCompile(`^05\d{9}$`)
	transactionIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)
	securityCodePattern  = regexp.MustCompile(`^\d{6}$`)
	clockPattern         = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	phoneNoise           = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use JSON tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("transactionid", validateTransactionID)
	v.RegisterValidation("securitycode", validateSecurityCode)
	v.RegisterValidation("clock", validateClock)
	v.RegisterValidation("reservationstatus", validateReservationStatus)
	v.RegisterValidation("deliverytype", validateDeliveryType)
	v.RegisterValidation("stage", validateStage)
	v.RegisterValidation("userrole", validateUserRole)
	v.RegisterValidation("userstatus", validateUserStatus)

	return &Validator{validate: v}
}

// Validate validates a struct and returns validation errors
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	// Convert validation errors to our custom format
	var validationErrs ValidationErrors
	for _, fe := range fieldErrs {
		validationErrs = append(validationErrs, ValidationError{
			Field:   fieldPath(fe),
			Message: msgForTag(fe),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
		})
	}

	return validationErrs
}

// ValidateVar validates a single value against a tag string.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// fieldPath drops the struct name so nested fields read "shareholders[0].phone_number".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// msgForTag returns a human-readable error message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "phone":
		return fmt.Sprintf("%s must be a Turkish mobile number (05XXXXXXXXX)", field)
	case "transactionid":
		return fmt.Sprintf("%s must be 16 letters or digits", field)
	case "securitycode":
		return fmt.Sprintf("%s must be 6 digits", field)
	case "clock":
		return fmt.Sprintf("%s must be in HH:MM format", field)
	case "reservationstatus":
		return fmt.Sprintf("%s must be one of: active, completed, canceled, expired", field)
	case "deliverytype":
		return fmt.Sprintf("%s must be one of: kesimhane, toplu-teslim", field)
	case "stage":
		return fmt.Sprintf("%s must be one of: slaughter_stage, butcher_stage, delivery_stage", field)
	case "userrole":
		return fmt.Sprintf("%s must be either 'admin' or 'editor'", field)
	case "userstatus":
		return fmt.Sprintf("%s must be one of: pending, approved, blocked", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// NormalizePhone reduces common spellings of a Turkish mobile number
// (+90 532 123 45 67, 905321234567, 5321234567) to 05321234567.
// The second result reports whether the input was a valid mobile number.
func NormalizePhone(raw string) (string, bool) {
	p := phoneNoise.Replace(strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(p, "+90"):
		p = "0" + p[3:]
	case strings.HasPrefix(p, "0090"):
		p = "0" + p[4:]
	case strings.HasPrefix(p, "90") && len(p) == 12:
		p = "0" + p[2:]
	case strings.HasPrefix(p, "5") && len(p) == 10:
		p = "0" + p
	}

	if !mobilePattern.MatchString(p) {
		return raw, false
	}
	return p, true
}

// Custom validators

func validatePhone(fl validator.FieldLevel) bool {
	_, ok := NormalizePhone(fl.Field().String())
	return ok
}

func validateTransactionID(fl validator.FieldLevel) bool {
	return transactionIDPattern.MatchString(fl.Field().String())
}

func validateSecurityCode(fl validator.FieldLevel) bool {
	return securityCodePattern.MatchString(fl.Field().String())
}

// validateClock validates HH:MM in 24-hour time
func validateClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func validateReservationStatus(fl validator.FieldLevel) bool {
	switch models.ReservationStatus(fl.Field().String()) {
	case models.ReservationActive, models.ReservationCompleted, models.ReservationCanceled, models.ReservationExpired:
		return true
	}
	return false
}

func validateDeliveryType(fl validator.FieldLevel) bool {
	switch models.DeliveryType(fl.Field().String()) {
	case models.DeliveryAtSlaughterhouse, models.DeliveryCollective:
		return true
	}
	return false
}

func validateStage(fl validator.FieldLevel) bool {
	stage := models.Stage(fl.Field().String())
	for _, s := range models.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	role := models.UserRole(fl.Field().String())
	return role == models.RoleAdmin || role == models.RoleEditor
}

func validateUserStatus(fl validator.FieldLevel) bool {
	switch models.UserStatus(fl.Field().String()) {
	case models.UserPending, models.UserApproved, models.UserBlocked:
		return true
	}
	return false
}
