package ckbwire

import "fmt"

// WitnessArgs is the witness layout the system lock scripts read. Lock holds
// the signature, the type fields carry data for input and output type
// scripts. A nil field is encoded as an absent option.
type WitnessArgs struct {
	Lock       []byte
	InputType  []byte
	OutputType []byte
}

func serializeBytesOpt(b []byte) []byte {
	if b == nil {
		return nil
	}

	return serializeBytes(b)
}

func deserializeBytesOpt(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, nil
	}

	return deserializeBytes(b)
}

// Serialize returns the molecule encoding of the witness.
func (w *WitnessArgs) Serialize() []byte {
	return serializeTable(
		serializeBytesOpt(w.Lock),
		serializeBytesOpt(w.InputType),
		serializeBytesOpt(w.OutputType),
	)
}

// DeserializeWitnessArgs decodes a molecule encoded WitnessArgs.
func DeserializeWitnessArgs(b []byte) (*WitnessArgs, error) {
	fields, err := deserializeTable(b, 3)
	if err != nil {
		return nil, fmt.Errorf("witness args: %w", err)
	}

	var w WitnessArgs
	if w.Lock, err = deserializeBytesOpt(fields[0]); err != nil {
		return nil, fmt.Errorf("witness lock: %w", err)
	}
	if w.InputType, err = deserializeBytesOpt(fields[1]); err != nil {
		return nil, fmt.Errorf("witness input type: %w", err)
	}
	if w.OutputType, err = deserializeBytesOpt(fields[2]); err != nil {
		return nil, fmt.Errorf("witness output type: %w", err)
	}

	return &w, nil
}
