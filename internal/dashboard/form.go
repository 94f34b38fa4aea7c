package dashboard

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trikala-registry/companymap/internal/filter"
	"github.com/trikala-registry/companymap/internal/registry"
)

var activityCodePrefix = regexp.MustCompile(`^\d{1,2}(\.\d+)*$`)

// filterForm is the sidebar as submitted. Every field is checked before any of
// them is committed.
type filterForm struct {
	Activity    string `validate:"required,activity"`
	LegalType   string `validate:"required,legaltype"`
	Status      string `validate:"required,status"`
	YearFrom    int    `validate:"gte=1982,lte=2024"`
	YearTo      int    `validate:"gte=1982,lte=2024,gtefield=YearFrom"`
	CapitalFrom int    `validate:"gte=0,lte=500000,step=1000"`
	CapitalTo   int    `validate:"gte=0,lte=500000,step=1000,gtefield=CapitalFrom"`
}

// formFields maps struct fields to their form/query names.
var formFields = map[string]string{
	"Activity":    "activity",
	"LegalType":   "legal_type",
	"Status":      "status",
	"YearFrom":    "year_from",
	"YearTo":      "year_to",
	"CapitalFrom": "capital_from",
	"CapitalTo":   "capital_to",
}

var fieldMessages = map[string]string{
	"activity":     "Μη έγκυρη δραστηριότητα",
	"legal_type":   "Μη έγκυρη νομική μορφή",
	"status":       "Μη έγκυρη κατάσταση",
	"year_from":    "Μη έγκυρο έτος ίδρυσης",
	"year_to":      "Μη έγκυρο έτος ίδρυσης",
	"capital_from": "Μη έγκυρο μετοχικό κεφάλαιο",
	"capital_to":   "Μη έγκυρο μετοχικό κεφάλαιο",
}

// FormErrors holds one message per rejected field, keyed by form name.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	fields := make([]string, 0, len(e))
	for _, name := range []string{"activity", "legal_type", "status", "year_from", "year_to", "capital_from", "capital_to"} {
		if _, ok := e[name]; ok {
			fields = append(fields, name)
		}
	}
	return "invalid " + strings.Join(fields, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("activity", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		if filter.IsAll(value) {
			return true
		}
		if _, ok := registry.CategoryForMarket(value); ok {
			return true
		}
		return activityCodePrefix.MatchString(value)
	})
	_ = v.RegisterValidation("legaltype", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		if filter.IsAll(value) {
			return true
		}
		for _, lt := range registry.LegalTypes {
			if string(lt) == value {
				return true
			}
		}
		return false
	})
	// step=N accepts only multiples of N, matching the slider increments.
	_ = v.RegisterValidation("step", func(fl validator.FieldLevel) bool {
		n, err := strconv.ParseInt(fl.Param(), 10, 64)
		if err != nil || n <= 0 {
			return false
		}
		return fl.Field().Int()%n == 0
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return filter.IsAll(value) || value == filter.StatusActive || value == filter.StatusClosed
	})
	return v
}

// parseControls reads the sidebar from values. Missing fields fall back to the
// untouched sidebar; present but malformed fields are errors.
func (h *Handler) parseControls(values url.Values) (filter.Controls, error) {
	defaults := filter.DefaultControls()
	errs := FormErrors{}

	text := func(name, fallback string) string {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			return v
		}
		return fallback
	}
	number := func(name string, fallback int) int {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs[name] = fieldMessages[name]
			return fallback
		}
		return n
	}

	form := filterForm{
		Activity:    text("activity", defaults.Activity),
		LegalType:   text("legal_type", defaults.LegalType),
		Status:      text("status", defaults.Status),
		YearFrom:    number("year_from", defaults.YearFrom),
		YearTo:      number("year_to", defaults.YearTo),
		CapitalFrom: number("capital_from", defaults.CapitalFrom),
		CapitalTo:   number("capital_to", defaults.CapitalTo),
	}

	if err := h.validate.Struct(form); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return filter.Controls{}, fmt.Errorf("dashboard: validate filters: %w", err)
		}
		for _, fieldErr := range validationErrs {
			name := formFields[fieldErr.StructField()]
			if _, seen := errs[name]; !seen {
				errs[name] = fieldMessages[name]
			}
		}
	}
	if len(errs) > 0 {
		return filter.Controls{}, errs
	}

	return filter.Controls{
		Activity:    form.Activity,
		LegalType:   form.LegalType,
		Status:      form.Status,
		YearFrom:    form.YearFrom,
		YearTo:      form.YearTo,
		CapitalFrom: form.CapitalFrom,
		CapitalTo:   form.CapitalTo,
	}, nil
}

// hasFilterParams reports whether values carry any sidebar field.
func hasFilterParams(values url.Values) bool {
	for _, name := range formFields {
		if values.Has(name) {
			return true
		}
	}
	return false
}
