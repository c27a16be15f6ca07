package memory

import (
	"bytes"
	"errors"
	"log"
	"maps"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	assert.Equal(Font[:], mem.Data[FONT_BASE:FONT_BASE+len(Font)])
	for n, b := range mem.Data {
		if n >= FONT_BASE && n < FONT_BASE+len(Font) {
			continue
		}
		assert.Equal(byte(0), b, "0x%03x", n)
	}
}

func TestMemory_Write(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		address uint16
		data    []byte
	}){
		{0x014, []byte{0x11, 0x22, 0x33, 0x44}},
		{0x200, []byte{0x00, 0xe0}},
		{0xffc, []byte{0xde, 0xad, 0xbe, 0xef}},
		{0xfff, []byte{0x5a}},
		{0x300, nil},
	}

	for _, entry := range table {
		mem := NewMemory()

		err := mem.Write(entry.address, entry.data)
		assert.NoError(err)

		data, err := mem.Read(entry.address, len(entry.data))
		assert.NoError(err)
		assert.Equal(len(entry.data), len(data))
		if len(entry.data) > 0 {
			assert.Equal(entry.data, data)
		}
	}
}

func TestMemory_Bounds(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	err := mem.Write(0xffe, []byte{1, 2, 3})
	assert.ErrorIs(err, ErrBounds{})
	assert.Equal(ErrBounds{Address: 0xffe, Length: 3}, err)
	assert.Equal(byte(0), mem.Data[0xffe], "partial write")

	_, err = mem.Read(0xfff, 2)
	assert.ErrorIs(err, ErrBounds{})

	_, err = mem.Load(0x1000)
	assert.ErrorIs(err, ErrBounds{})

	err = mem.Store(0x1000, 1)
	assert.ErrorIs(err, ErrBounds{})

	_, err = mem.ReadInstruction(0xfff)
	assert.ErrorIs(err, ErrBounds{})

	_, err = mem.ReadInstruction(0xffe)
	assert.NoError(err)
}

func TestMemory_ReadInstruction(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	err := mem.Write(0x14, []byte{0x11, 0x22, 0x33, 0x44})
	assert.NoError(err)

	word, err := mem.ReadInstruction(0x14)
	assert.NoError(err)
	assert.Equal(uint16(0x1122), word)

	word, err = mem.ReadInstruction(0x16)
	assert.NoError(err)
	assert.Equal(uint16(0x3344), word)

	// Unaligned fetch straddles both words.
	word, err = mem.ReadInstruction(0x15)
	assert.NoError(err)
	assert.Equal(uint16(0x2233), word)

	for address := range uint16(MEMORY_SIZE - 1) {
		word, err := mem.ReadInstruction(address)
		assert.NoError(err)
		assert.Equal(uint16(mem.Data[address])<<8|uint16(mem.Data[address+1]), word)
	}
}

func TestMemory_LoadStore(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	err := mem.Store(0x300, 0xa5)
	assert.NoError(err)

	value, err := mem.Load(0x300)
	assert.NoError(err)
	assert.Equal(byte(0xa5), value)

	value, err = mem.Load(FONT_BASE)
	assert.NoError(err)
	assert.Equal(byte(0xf0), value)
}

func TestMemory_LoadProgram(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	err := mem.LoadProgram([]byte{0x00, 0xe0, 0x12, 0x02})
	assert.NoError(err)
	assert.Equal([]byte{0x00, 0xe0, 0x12, 0x02}, mem.Data[PROGRAM_START:PROGRAM_START+4])

	err = mem.LoadProgram(make([]byte, PROGRAM_LIMIT))
	assert.NoError(err)

	err = mem.LoadProgram(make([]byte, PROGRAM_LIMIT+1))
	assert.True(errors.Is(err, ErrProgramSize))

	// Reserved area untouched by loads.
	assert.Equal(Font[:], mem.Data[FONT_BASE:FONT_BASE+len(Font)])
}

func TestMemory_Reset(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()
	mem.Data[FONT_BASE] = 0
	mem.Data[0x400] = 0x55

	mem.Reset()

	assert.Equal(byte(0xf0), mem.Data[FONT_BASE])
	assert.Equal(byte(0), mem.Data[0x400])
}

func TestMemory_Dump(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	buf := &bytes.Buffer{}
	err := mem.Dump(buf)
	assert.NoError(err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(MEMORY_SIZE/16, len(lines))
	assert.True(strings.HasPrefix(lines[FONT_BASE/16], "00000050  f0 90 90 90 f0 20 60 20"))
}

func TestGlyph(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(FONT_BASE), Glyph(0))
	assert.Equal(uint16(FONT_BASE+15*FONT_HEIGHT), Glyph(0xf))
}

func TestMemory_Defines(t *testing.T) {
	assert := assert.New(t)

	mem := NewMemory()

	defines := map[string]string{}
	for key, value := range mem.Defines() {
		defines[key] = value
	}

	assert.Equal("0x200", defines["PROGRAM_START"])
	assert.Equal("0x50", defines["FONT_BASE"])
	assert.Equal("5", defines["FONT_HEIGHT"])
	assert.Equal(maps.Collect(Defines()), defines)
}

func TestMemory_Verbose(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	defer log.SetOutput(os.Stderr)

	mem := NewMemory()
	assert.NoError(mem.LoadProgram([]byte{0x00, 0xe0}))
	assert.Empty(buf.String())

	mem.Verbose = true
	assert.NoError(mem.LoadProgram([]byte{0x00, 0xe0}))
	assert.Contains(buf.String(), "memory: load 2 bytes at 0x200")
}
