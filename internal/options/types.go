package options

import "fmt"

// Type is the value type of a global option.
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
)

// TrueFalse holds the literal values written for a boolean option that does
// not take the bare flag form.
type TrueFalse struct {
	True  string `json:"true" yaml:"true"`
	False string `json:"false" yaml:"false"`
}

// GlobalOption is one ffmpeg global option offered by a catalogue.
type GlobalOption struct {
	// Key is the label of the option in the catalogue source.
	Key string `json:"key" yaml:"key"`

	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Flag        string `json:"flag" yaml:"flag"`
	Type        Type   `json:"type" yaml:"type"`

	// Choices restricts string options. Empty means free-form.
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	// SupportNoPrefix allows -noflag to negate a boolean option.
	SupportNoPrefix bool       `json:"support_no_prefix,omitempty" yaml:"support_no_prefix,omitempty"`
	Values          *TrueFalse `json:"values,omitempty" yaml:"values,omitempty"`
}

// Args renders the command-line arguments for setting o to value.
//
// String options take the value verbatim and check it against Choices.
// Boolean options accept "true" or "false".
func (o GlobalOption) Args(value string) ([]string, error) {
	flag := "-" + o.Flag

	switch o.Type {
	case TypeString:
		if len(o.Choices) > 0 && !contains(o.Choices, value) {
			return nil, fmt.Errorf("option %q: %q is not one of %v", o.Name, value, o.Choices)
		}
		return []string{flag, value}, nil

	case TypeBoolean:
		var on bool
		switch value {
		case "true":
			on = true
		case "false":
		default:
			return nil, fmt.Errorf("option %q: boolean value must be true or false, got %q", o.Name, value)
		}

		if o.Values != nil {
			if on {
				return []string{flag, o.Values.True}, nil
			}
			return []string{flag, o.Values.False}, nil
		}
		if on {
			return []string{flag}, nil
		}
		if o.SupportNoPrefix {
			return []string{"-no" + o.Flag}, nil
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("option %q: unknown type %q", o.Name, o.Type)
	}
}

// Lookup returns the option with the given key.
func Lookup(opts []GlobalOption, key string) (GlobalOption, bool) {
	for _, o := range opts {
		if o.Key == key {
			return o, true
		}
	}
	return GlobalOption{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
