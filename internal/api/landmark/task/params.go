package landmarkTask

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	KeyConfThres   = "conf_thres"
	KeyCredentials = "google_application_credentials"
)

var validate = validator.New()

// Params is the typed parameter set of the landmark task. The host exchanges
// parameters as a string-keyed dictionary; SetValues and Values translate
// between the two representations.
type Params struct {
	ConfThres                    float64 `validate:"gte=0,lte=1"`
	GoogleApplicationCredentials string
}

func DefaultParams() Params {
	return Params{ConfThres: 0.2}
}

// SetValues applies a host parameter dictionary. Keys absent from the map
// keep their current value; unknown keys and unparsable values are rejected
// and leave the receiver untouched.
func (p *Params) SetValues(values map[string]string) error {
	next := *p

	for key, value := range values {
		switch key {
		case KeyConfThres:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("parameter %s: %q is not a number", KeyConfThres, value)
			}
			next.ConfThres = f
		case KeyCredentials:
			next.GoogleApplicationCredentials = value
		default:
			return fmt.Errorf("unknown parameter %q", key)
		}
	}

	if err := validate.Struct(next); err != nil {
		return fmt.Errorf("parameter validation: %w", err)
	}

	*p = next

	return nil
}

// Values renders the parameter set back to the host dictionary form.
func (p *Params) Values() map[string]string {
	return map[string]string{
		KeyConfThres:   strconv.FormatFloat(p.ConfThres, 'g', -1, 64),
		KeyCredentials: p.GoogleApplicationCredentials,
	}
}
