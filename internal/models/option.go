package models

// Option is one entry of a select element.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Dropdown is a select element whose first option is a fixed placeholder.
type Dropdown struct {
	ElementID string   `json:"elementId"`
	Options   []Option `json:"options"`
}

func NewDropdown(elementID, placeholder string) Dropdown {
	return Dropdown{
		ElementID: elementID,
		Options:   []Option{{Value: "", Label: placeholder}},
	}
}

// Replace keeps the placeholder and swaps every other option for opts.
func (d Dropdown) Replace(opts []Option) Dropdown {
	out := Dropdown{ElementID: d.ElementID}
	if len(d.Options) > 0 {
		out.Options = make([]Option, 0, len(opts)+1)
		out.Options = append(out.Options, d.Options[0])
	}
	out.Options = append(out.Options, opts...)
	return out
}

func (d Dropdown) Placeholder() Option {
	if len(d.Options) == 0 {
		return Option{}
	}
	return d.Options[0]
}

// Choices returns every option after the placeholder.
func (d Dropdown) Choices() []Option {
	if len(d.Options) == 0 {
		return nil
	}
	return d.Options[1:]
}

func FindDropdown(dropdowns []Dropdown, elementID string) (Dropdown, bool) {
	for _, d := range dropdowns {
		if d.ElementID == elementID {
			return d, true
		}
	}
	return Dropdown{}, false
}
