package db

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Serializer turns document values into their wire representation.
type Serializer interface {
	Name() string
	Encode(v any) (string, error)
}

// Serializer names accepted in connection settings.
const (
	SerializerText = "text"
	SerializerJSON = "json"
)

// LookupSerializer resolves a serializer by name. Empty selects text.
func LookupSerializer(name string) (Serializer, error) {
	switch name {
	case "", SerializerText:
		return TextSerializer{}, nil
	case SerializerJSON:
		return JSONSerializer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
}

// TextSerializer encodes scalars as plain strings.
type TextSerializer struct{}

// Name returns "text".
func (TextSerializer) Name() string { return SerializerText }

// Encode formats v without quoting.
func (TextSerializer) Encode(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return fmt.Sprint(v), nil
}

// JSONSerializer encodes values as JSON.
type JSONSerializer struct{}

// Name returns "json".
func (JSONSerializer) Name() string { return SerializerJSON }

// Encode marshals v to JSON.
func (JSONSerializer) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
