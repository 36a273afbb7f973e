// Package codec provides the CBOR wire codec used by the job stream service.
package codec

import (
	"encoding"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	grpcencoding "google.golang.org/grpc/encoding"
)

// Name is the content-subtype under which the codec is registered.
const Name = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Nil pointers are the only thing omitempty should drop; an empty
	// struct behind a pointer is still a populated variant.
	encOptions.OmitEmpty = cbor.OmitEmptyGoValue
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	// Unknown fields are ignored so that newer servers can add event variants.
	decMode, err = cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}

	grpcencoding.RegisterCodec(Codec{})
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Codec implements the gRPC encoding.Codec interface.
//
// Messages implementing encoding.BinaryUnmarshaler receive the raw frame
// bytes instead of being decoded, which lets a receiver defer decoding.
type Codec struct{}

// Marshal encodes the message.
func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(encoding.BinaryMarshaler); ok {
		return m.MarshalBinary()
	}

	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}

	return data, nil
}

// Unmarshal decodes the message.
func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(encoding.BinaryUnmarshaler); ok {
		return m.UnmarshalBinary(data)
	}

	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}

	return nil
}

// Name returns the name of the codec.
func (Codec) Name() string {
	return Name
}
