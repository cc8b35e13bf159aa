package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Codec converts a value to and from its stored text form.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// DecodeError reports stored data that could not be turned into a value.
type DecodeError struct {
	Key   string
	Stage string // "parse" or "validate"
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("decode (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("decode %q (%s): %v", e.Key, e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a value that could not be serialized.
type EncodeError struct {
	Key string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %q: %v", e.Key, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// JSONCodec encodes values as JSON and runs Validate after every decode.
type JSONCodec[T any] struct {
	Validate func(T) error
}

// Encode implements Codec.
func (c JSONCodec[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}

// Decode implements Codec.
func (c JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, &DecodeError{Stage: "parse", Err: err}
	}
	if c.Validate != nil {
		if err := c.Validate(v); err != nil {
			var zero T
			return zero, &DecodeError{Stage: "validate", Err: err}
		}
	}
	return v, nil
}

var validate = validator.New()

// ValidateStruct runs the `validate` struct tags of v and flattens any
// failures into a single error.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s failed %q (value: %v)", e.StructNamespace(), e.Tag(), e.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
