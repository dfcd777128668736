package sensor

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestInterpretPhysicalSingleRegister(t *testing.T) {
	rep := PhysicalRep(0.1, 0, DegreesCelsius)
	v, err := Interpret(rep, []uint16{0x00E6})
	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Physical)
	assert.Equal(t, v.Physical, 23.0)
	assert.Equal(t, v.Unit, DegreesCelsius)
}

func TestInterpretPhysicalMultiRegister(t *testing.T) {
	// 500 raw across two registers, scaled by 100 into watt hours
	rep := PhysicalRep(100, 0, WattHours)
	v, err := Interpret(rep, []uint16{0x0000, 0x01F4})
	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Physical)
	assert.Equal(t, v.Physical, 50000.0)
	assert.Equal(t, v.Unit, WattHours)
}

func TestInterpretRegisterWordOrder(t *testing.T) {
	// the first register supplies the most significant word
	rep := PhysicalRep(1, 0, WattHours)
	v, err := Interpret(rep, []uint16{0x0001, 0x0000})
	assert.NilError(t, err)
	assert.Equal(t, v.Physical, 65536.0)
}

func TestInterpretInteger(t *testing.T) {
	rep := IntegerRep(2, 10)
	v, err := Interpret(rep, []uint16{0x0064})
	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Integer)
	assert.Equal(t, v.Integer, int64(210))
}

func TestInterpretIntegerSignExtension(t *testing.T) {
	// all-ones across 32 bits decodes as -1 before scaling
	rep := IntegerRep(1, 0)
	v, err := Interpret(rep, []uint16{0xFFFF, 0xFFFF})
	assert.NilError(t, err)
	assert.Equal(t, v.Integer, int64(-1))
}

func TestInterpretEnumeration(t *testing.T) {
	rep := EnumerationRep(BatteryStatusEnum)
	v, err := Interpret(rep, []uint16{0x0002})
	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Enumeration)
	assert.Equal(t, v.EnumIndex, 2)
	assert.Equal(t, v.Enum, BatteryStatusEnum)
}

func TestInterpretRegistersCopiesAndPads(t *testing.T) {
	v, err := Interpret(RegistersRep(), []uint16{0xAAAA, 0xBBBB})
	assert.NilError(t, err)
	assert.Equal(t, v.Kind, Registers)
	assert.Equal(t, v.Registers[0], uint16(0xAAAA))
	assert.Equal(t, v.Registers[1], uint16(0xBBBB))
	assert.Equal(t, v.Registers[2], uint16(0), "unused slots stay zero")
}

func TestInterpretKindMatchesRep(t *testing.T) {
	cases := []struct {
		rep  Rep
		regs []uint16
	}{
		{RegistersRep(), []uint16{1, 2, 3}},
		{IntegerRep(1, 0), []uint16{7}},
		{PhysicalRep(0.1, 0, Volts), []uint16{7}},
		{EnumerationRep(WorkModeEnum), []uint16{1}},
	}
	for _, c := range cases {
		v, err := Interpret(c.rep, c.regs)
		assert.NilError(t, err)
		assert.Equal(t, v.Kind, c.rep.Kind)
	}
}

func TestInterpretLengthViolations(t *testing.T) {
	_, err := Interpret(RegistersRep(), make([]uint16, 9))
	assert.Equal(t, err, ErrValueOutOfRange)

	_, err = Interpret(PhysicalRep(1, 0, Volts), make([]uint16, 5))
	assert.Equal(t, err, ErrValueOutOfRange)

	_, err = Interpret(Rep{}, []uint16{1})
	assert.Equal(t, err, ErrValueOutOfRange)
}

func TestFormat(t *testing.T) {
	v, err := Interpret(PhysicalRep(0.1, 0, Volts), []uint16{2305})
	assert.NilError(t, err)
	s, err := v.Format(1)
	assert.NilError(t, err)
	assert.Equal(t, s, "230.5 V")

	v, err = Interpret(EnumerationRep(RunningStatusEnum), []uint16{2})
	assert.NilError(t, err)
	s, err = v.Format(1)
	assert.NilError(t, err)
	assert.Equal(t, s, "Normal")

	v, err = Interpret(EnumerationRep(RunningStatusEnum), []uint16{9})
	assert.NilError(t, err)
	s, err = v.Format(1)
	assert.NilError(t, err)
	assert.Equal(t, s, "unknown(9)")

	v, err = Interpret(RegistersRep(), []uint16{0x1234, 0xABCD})
	assert.NilError(t, err)
	s, err = v.Format(2)
	assert.NilError(t, err)
	assert.Equal(t, s, "0x1234 0xABCD")
}

func TestFormatUnknownUnit(t *testing.T) {
	v := Value{Kind: Physical, Physical: 1, Unit: UnitID(200)}
	_, err := v.Format(1)
	assert.Equal(t, err, ErrUnknownUnit)
}
