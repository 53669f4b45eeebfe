package opts

// OptionList is a name-sorted set of effective option values.
type OptionList []Value

// Lookup finds name in the list.
func (l OptionList) Lookup(name string) (Value, bool) {
	canonical := NormalizeName(name)
	for _, value := range l {
		if value.Name() == canonical {
			return value, true
		}
	}
	return Value{}, false
}

// Names returns the option names in list order.
func (l OptionList) Names() []Name {
	names := make([]Name, 0, len(l))
	for _, value := range l {
		names = append(names, value.Name())
	}
	return names
}

// Map indexes the list by name.
func (l OptionList) Map() map[Name]Value {
	out := make(map[Name]Value, len(l))
	for _, value := range l {
		out[value.Name()] = value
	}
	return out
}
