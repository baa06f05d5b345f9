package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/planloom/internal/domain"
)

// choiceValue is a string flag restricted to a fixed set of values.
type choiceValue struct {
	value   string
	choices []string
}

var _ pflag.Value = (*choiceValue)(nil)

func newChoice(def string, choices ...string) *choiceValue {
	return &choiceValue{value: def, choices: choices}
}

func (c *choiceValue) String() string { return c.value }

func (c *choiceValue) Set(s string) error {
	s = strings.TrimSpace(s)
	for _, ch := range c.choices {
		if strings.EqualFold(ch, s) {
			c.value = ch
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(c.choices, "|"))
}

func (c *choiceValue) Type() string { return "choice" }

// dateValue is a YYYY-MM-DD flag checked at parse time.
type dateValue struct {
	value string
}

var _ pflag.Value = (*dateValue)(nil)

func (d *dateValue) String() string { return d.value }

func (d *dateValue) Set(s string) error {
	if _, err := domain.ParseDate(s); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD")
	}
	d.value = s
	return nil
}

func (d *dateValue) Type() string { return "date" }

// ptr returns nil for an unset flag.
func (d *dateValue) ptr() *string {
	if d.value == "" {
		return nil
	}
	v := d.value
	return &v
}

func dependencyTypes() []string {
	out := make([]string, 0, len(domain.ValidDependencyTypes))
	for t := range domain.ValidDependencyTypes {
		out = append(out, string(t))
	}
	slices.Sort(out)
	return out
}

func projectStatuses() []string {
	out := make([]string, 0, len(domain.ValidProjectStatuses))
	for s := range domain.ValidProjectStatuses {
		out = append(out, string(s))
	}
	slices.Sort(out)
	return out
}

// changed reports whether any of names was set on the command line.
func changed(fs *pflag.FlagSet, names ...string) bool {
	for _, n := range names {
		if fs.Changed(n) {
			return true
		}
	}
	return false
}
