package listing

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/validate"
)

// Step names one page of the listing wizard.
type Step string

const (
	StepAddress     Step = "address"
	StepDetails     Step = "details"
	StepPricing     Step = "pricing"
	StepDescription Step = "description"
)

// Steps is the wizard order.
var Steps = []Step{StepAddress, StepDetails, StepPricing, StepDescription}

// ParseStep accepts a step name or its 1-based position.
func ParseStep(s string) (Step, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, st := range Steps {
		if s == string(st) || s == string(rune('1'+i)) {
			return st, nil
		}
	}
	return "", eris.Wrapf(model.ErrValidation, "unknown wizard step %q", s)
}

type addressStep struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,len=2,alpha"`
	ZipCode string `json:"zip_code" validate:"required,len=5,numeric"`
}

type detailsStep struct {
	PropertyType string  `json:"property_type" validate:"required,oneof=single_family condo townhouse multi_family manufactured land"`
	Bedrooms     int     `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms    float64 `json:"bathrooms" validate:"gte=0,lte=50"`
	Sqft         int     `json:"sqft" validate:"gte=1"`
	YearBuilt    int     `json:"year_built" validate:"omitempty,gte=1700,lte=2100"`
}

type pricingStep struct {
	ListPrice float64 `json:"list_price" validate:"gte=1"`
}

type descriptionStep struct {
	Description string `json:"description" validate:"required,min=50,max=5000"`
}

func stepView(step Step, l *model.Listing) any {
	switch step {
	case StepAddress:
		return addressStep{Street: l.Street, City: l.City, State: l.State, ZipCode: l.ZipCode}
	case StepDetails:
		return detailsStep{PropertyType: l.PropertyType, Bedrooms: l.Bedrooms, Bathrooms: l.Bathrooms, Sqft: l.Sqft, YearBuilt: l.YearBuilt}
	case StepPricing:
		return pricingStep{ListPrice: l.Price()}
	case StepDescription:
		return descriptionStep{Description: l.Description}
	}
	return nil
}

// ValidateStep checks the fields gated by one wizard step.
func ValidateStep(ctx context.Context, step Step, l *model.Listing) error {
	view := stepView(step, l)
	if view == nil {
		return eris.Wrapf(model.ErrValidation, "unknown wizard step %q", step)
	}
	return validate.Struct(ctx, view)
}

// ValidateAll runs every wizard step in order and returns the first failure.
func ValidateAll(ctx context.Context, l *model.Listing) error {
	for _, step := range Steps {
		if err := ValidateStep(ctx, step, l); err != nil {
			return eris.Wrapf(err, "listing: step %s", step)
		}
	}
	return nil
}
