package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Category is a domain category label.
type Category string

// Priority is a domain priority, urgency or risk label.
type Priority string

// Result is the outcome of classifying one input. It is never empty.
type Result struct {
	Domain          string            `json:"domain"`
	PrimaryCategory Category          `json:"primary_category"`
	Priority        Priority          `json:"priority"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// Classifier composes the waterfalls of one domain.
type Classifier struct {
	Domain     string
	Primary    Waterfall[Category]
	Priority   Waterfall[Priority]
	Attributes map[string]Waterfall[string]
}

// Validate reports configuration bugs. Classifiers are validated at startup.
func (c *Classifier) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil classifier", ErrClassification)
	}
	var errs []error
	if err := c.Primary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%s primary: %w", c.Domain, err))
	}
	if err := c.Priority.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%s priority: %w", c.Domain, err))
	}
	for name, w := range c.Attributes {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s attribute %s: %w", c.Domain, name, err))
		}
	}
	return errors.Join(errs...)
}

// Classify returns a fully populated Result for any input, including "".
// A misconfigured classifier logs the problem and recovers with the
// "general" category.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(text)

	res := Result{
		Domain:          c.Domain,
		PrimaryCategory: c.Primary.Evaluate(lower),
		Priority:        c.Priority.Evaluate(lower),
	}
	if res.PrimaryCategory == "" {
		log.Warn().
			Str("domain", c.Domain).
			Err(ErrClassification).
			Msg("classifier produced empty category, using fallback")
		res.PrimaryCategory = FallbackCategory
	}
	if res.Priority == "" {
		res.Priority = "normal"
	}

	if len(c.Attributes) > 0 {
		res.Attributes = make(map[string]string, len(c.Attributes))
		for name, w := range c.Attributes {
			if v := w.Evaluate(lower); v != "" {
				res.Attributes[name] = v
			}
		}
	}
	return res
}

// DefaultResult is the classification used when the pipeline falls back.
func (c *Classifier) DefaultResult() Result {
	res := Result{
		Domain:          c.Domain,
		PrimaryCategory: c.Primary.Default,
		Priority:        c.Priority.Default,
	}
	if res.PrimaryCategory == "" {
		res.PrimaryCategory = FallbackCategory
	}
	if res.Priority == "" {
		res.Priority = "normal"
	}
	if len(c.Attributes) > 0 {
		res.Attributes = make(map[string]string, len(c.Attributes))
		for name, w := range c.Attributes {
			if w.Default != "" {
				res.Attributes[name] = w.Default
			}
		}
	}
	return res
}

// Categories lists every primary category, default last.
func (c *Classifier) Categories() []Category {
	return c.Primary.Labels()
}

// AttributeNames returns the attribute keys in sorted order.
func (c *Classifier) AttributeNames() []string {
	names := make([]string, 0, len(c.Attributes))
	for n := range c.Attributes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
