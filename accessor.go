package opts

import "context"

// Reader resolves the effective value of an option. Both Manager and
// FallbackReader implement it.
type Reader interface {
	GetOption(ctx context.Context, name string) (Value, error)
}

// GetBool resolves a boolean option through r.
func GetBool(ctx context.Context, r Reader, opt BoolOption) (bool, error) {
	value, err := r.GetOption(ctx, string(opt.Name()))
	if err != nil {
		return false, err
	}
	return value.AsBool(), nil
}

// GetFloat resolves a float option through r.
func GetFloat(ctx context.Context, r Reader, opt FloatOption) (float64, error) {
	value, err := r.GetOption(ctx, string(opt.Name()))
	if err != nil {
		return 0, err
	}
	return value.AsFloat(), nil
}

// GetInt resolves an int option through r.
func GetInt(ctx context.Context, r Reader, opt IntOption) (int64, error) {
	value, err := r.GetOption(ctx, string(opt.Name()))
	if err != nil {
		return 0, err
	}
	return value.AsInt(), nil
}

// GetString resolves a string option through r.
func GetString(ctx context.Context, r Reader, opt StringOption) (string, error) {
	value, err := r.GetOption(ctx, string(opt.Name()))
	if err != nil {
		return "", err
	}
	return value.AsString(), nil
}
