package sensor

import (
	"errors"
	"fmt"
	"strings"
)

// MaxRegisters bounds the raw-register passthrough representation.
const MaxRegisters = 8

// maxScalarBytes bounds the multi-register scalar staging word.
const maxScalarBytes = 8

// Kind tags both a representation rule and a decoded value.
type Kind uint8

const (
	Empty Kind = iota
	Registers
	Integer
	Physical
	Enumeration
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Registers:
		return "registers"
	case Integer:
		return "integer"
	case Physical:
		return "physical"
	case Enumeration:
		return "enumeration"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

var (
	// ErrUnknownSensor reports a lookup with an id outside the catalog.
	ErrUnknownSensor = errors.New("sensor: unknown sensor id")

	// ErrUnknownUnit reports a value tagged with a unit id, or an
	// enumeration id, outside its table.
	ErrUnknownUnit = errors.New("sensor: unknown unit id")

	// ErrValueOutOfRange reports a register slice that violates the
	// representation's length invariant.
	ErrValueOutOfRange = errors.New("sensor: register count out of range for representation")
)

// Rep is the tagged interpretation rule of a catalog entry. Only the
// fields of the tagged variant are meaningful; switch on Kind.
type Rep struct {
	Kind Kind

	// Integer variant.
	IntScale  int32
	IntOffset int32

	// Physical variant.
	Scale  float64
	Offset float64
	Unit   UnitID

	// Enumeration variant.
	Enum EnumID
}

// RegistersRep passes raw registers through untouched.
func RegistersRep() Rep {
	return Rep{Kind: Registers}
}

// IntegerRep decodes a signed scaled integer.
func IntegerRep(scale, offset int32) Rep {
	return Rep{Kind: Integer, IntScale: scale, IntOffset: offset}
}

// PhysicalRep decodes a scaled physical quantity tagged with a unit.
func PhysicalRep(scale, offset float64, unit UnitID) Rep {
	return Rep{Kind: Physical, Scale: scale, Offset: offset, Unit: unit}
}

// EnumerationRep decodes an index into an enumeration.
func EnumerationRep(enum EnumID) Rep {
	return Rep{Kind: Enumeration, Enum: enum}
}

// Value is a decoded sensor sample. Only the fields of the tagged
// variant are meaningful. The registers variant carries up to
// MaxRegisters words; the significant count lives in the sensor's Meta.
type Value struct {
	Kind Kind

	Registers [MaxRegisters]uint16

	Integer int64

	Physical float64
	Unit     UnitID

	EnumIndex int
	Enum      EnumID
}

// Interpret decodes a raw register slice according to rep. Multi-register
// scalars are staged big-endian: the first register supplies the most
// significant 16 bits of the staged word.
func Interpret(rep Rep, registers []uint16) (Value, error) {
	switch rep.Kind {
	case Registers:
		if len(registers) > MaxRegisters {
			return Value{}, ErrValueOutOfRange
		}
		v := Value{Kind: Registers}
		copy(v.Registers[:], registers)
		return v, nil

	case Integer, Physical, Enumeration:
		if len(registers)*2 > maxScalarBytes {
			return Value{}, ErrValueOutOfRange
		}
		var stage uint64
		for _, r := range registers {
			stage = stage<<16 | uint64(r)
		}

		switch rep.Kind {
		case Integer:
			return Value{
				Kind:    Integer,
				Integer: int64(int32(stage))*int64(rep.IntScale) + int64(rep.IntOffset),
			}, nil
		case Physical:
			return Value{
				Kind:     Physical,
				Physical: float64(stage)*rep.Scale + rep.Offset,
				Unit:     rep.Unit,
			}, nil
		default:
			return Value{
				Kind:      Enumeration,
				EnumIndex: int(stage),
				Enum:      rep.Enum,
			}, nil
		}
	}
	return Value{}, ErrValueOutOfRange
}

// Format renders a value for display: "230.5 V", "Normal", or a hex word
// list for raw registers. count is the significant register count from
// the sensor's Meta. Unknown unit ids are an error; an out-of-range
// enumeration index renders as unknown(n).
func (v Value) Format(count uint16) (string, error) {
	switch v.Kind {
	case Empty:
		return "", nil
	case Registers:
		if int(count) > MaxRegisters {
			count = MaxRegisters
		}
		words := make([]string, count)
		for i := range words {
			words[i] = fmt.Sprintf("0x%04X", v.Registers[i])
		}
		return strings.Join(words, " "), nil
	case Integer:
		return fmt.Sprintf("%d", v.Integer), nil
	case Physical:
		unit, ok := UnitByID(v.Unit)
		if !ok {
			return "", ErrUnknownUnit
		}
		return fmt.Sprintf("%g %s", v.Physical, unit.Symbol), nil
	case Enumeration:
		enum, ok := EnumerationByID(v.Enum)
		if !ok {
			return "", ErrUnknownUnit
		}
		name, ok := enum.Name(v.EnumIndex)
		if !ok {
			return fmt.Sprintf("unknown(%d)", v.EnumIndex), nil
		}
		return name, nil
	}
	return "", ErrValueOutOfRange
}
