package extractor

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/rand"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sectorSize    = 512
	streamSectors = 9 // above the 4096 byte mini stream cutoff
	endOfChain    = 0xFFFFFFFE
	freeSect      = 0xFFFFFFFF
	fatSect       = 0xFFFFFFFD
	noStream      = 0xFFFFFFFF
)

// buildDOC writes a Word 97 compound file. The first piece is stored as
// 8-bit text and the second as UTF-16, both described by a piece table in
// the 1Table stream.
func buildDOC(t *testing.T, first, second string) []byte {
	t.Helper()
	le := binary.LittleEndian

	word := make([]byte, streamSectors*sectorSize)
	le.PutUint16(word[0:], fibMagic)
	le.PutUint16(word[2:], 0x00C1)
	le.PutUint16(word[0x0A:], fibWhichTable)
	le.PutUint16(word[32:], 14) // csw
	le.PutUint16(word[62:], 22) // cslw
	le.PutUint32(word[64+12:], uint32(len(first)+len(second)))
	le.PutUint16(word[152:], 0x5D) // cbRgFcLcb

	const firstAt, secondAt = 1024, 2048
	copy(word[firstAt:], first)
	for i, u := range utf16.Encode([]rune(second)) {
		le.PutUint16(word[secondAt+2*i:], u)
	}

	table := make([]byte, streamSectors*sectorSize)
	clx := []byte{clxPcdt}
	clx = le.AppendUint32(clx, 4*3+8*2)
	clx = le.AppendUint32(clx, 0)
	clx = le.AppendUint32(clx, uint32(len(first)))
	clx = le.AppendUint32(clx, uint32(len(first)+len(second)))
	clx = append(clx, 0, 0)
	clx = le.AppendUint32(clx, firstAt*2|pcdCompressed)
	clx = append(clx, 0, 0, 0, 0)
	clx = le.AppendUint32(clx, secondAt)
	clx = append(clx, 0, 0)
	const clxAt = 64
	copy(table[clxAt:], clx)
	blob := 154 + 8*fcClxPair
	le.PutUint32(word[blob:], clxAt)
	le.PutUint32(word[blob+4:], uint32(len(clx)))

	return buildCFB(t, map[string][]byte{wordStreamName: word, table1Name: table})
}

// buildCFB lays out a version 3 compound file: header, one FAT sector, one
// directory sector, then each stream in name order.
func buildCFB(t *testing.T, streams map[string][]byte) []byte {
	t.Helper()
	le := binary.LittleEndian
	names := []string{wordStreamName, table1Name}

	header := make([]byte, sectorSize)
	copy(header, oleSignature)
	le.PutUint16(header[24:], 0x003E)
	le.PutUint16(header[26:], 3)
	le.PutUint16(header[28:], 0xFFFE)
	le.PutUint16(header[30:], 9)
	le.PutUint16(header[32:], 6)
	le.PutUint32(header[44:], 1) // FAT sectors
	le.PutUint32(header[48:], 1) // first directory sector
	le.PutUint32(header[56:], 4096)
	le.PutUint32(header[60:], endOfChain)
	le.PutUint32(header[68:], endOfChain)
	for i := 0; i < 109; i++ {
		le.PutUint32(header[76+4*i:], freeSect)
	}
	le.PutUint32(header[76:], 0)

	fat := make([]byte, sectorSize)
	for i := 0; i < sectorSize/4; i++ {
		le.PutUint32(fat[4*i:], freeSect)
	}
	le.PutUint32(fat[0:], fatSect)
	le.PutUint32(fat[4:], endOfChain)

	dir := make([]byte, sectorSize)
	dirEntry(dir[0:], "Root Entry", 5, noStream, 1, endOfChain, 0)

	var data []byte
	next := uint32(2)
	for i, name := range names {
		content := streams[name]
		require.Zero(t, len(content)%sectorSize)
		count := uint32(len(content) / sectorSize)
		for s := uint32(0); s < count; s++ {
			link := next + s + 1
			if s == count-1 {
				link = endOfChain
			}
			le.PutUint32(fat[4*(next+s):], link)
		}
		sibling := uint32(noStream)
		if i+1 < len(names) {
			sibling = uint32(i + 2)
		}
		dirEntry(dir[128*(i+1):], name, 2, sibling, noStream, next, uint64(len(content)))
		data = append(data, content...)
		next += count
	}
	dirEntry(dir[128*3:], "", 0, noStream, noStream, endOfChain, 0)

	var out bytes.Buffer
	out.Write(header)
	out.Write(fat)
	out.Write(dir)
	out.Write(data)
	return out.Bytes()
}

func dirEntry(b []byte, name string, kind byte, right, child, start uint32, size uint64) {
	le := binary.LittleEndian
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		le.PutUint16(b[2*i:], u)
	}
	if name != "" {
		le.PutUint16(b[64:], uint16(2*(len(units)+1)))
	}
	b[66] = kind
	b[67] = 1
	le.PutUint32(b[68:], noStream)
	le.PutUint32(b[72:], right)
	le.PutUint32(b[76:], child)
	le.PutUint32(b[116:], start)
	le.PutUint64(b[120:], size)
}

func TestExtract_DOCBinary(t *testing.T) {
	e := New(50 << 20)
	data := buildDOC(t, "The lease term is twelve months.\r", "Rent is due on the first day\x13 PAGE \x142\x15.\r")

	res, err := e.Extract(context.Background(), "lease.doc", data)
	require.NoError(t, err)
	assert.Equal(t, "doc-binary", res.Method)
	assert.Equal(t, "The lease term is twelve months.\nRent is due on the first day2.", res.Text)
}

func TestExtract_DOCRejectsNonWordBytes(t *testing.T) {
	e := New(50 << 20)

	noise := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(noise)

	withSignature := append(append([]byte{}, oleSignature...), noise...)

	tests := []struct {
		name string
		data []byte
	}{
		{"random bytes", noise},
		{"renamed text file", []byte("Meeting notes\nBring the quarterly figures.\n")},
		{"signature then garbage", withSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), "notes.doc", tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExtraction)
		})
	}
}

func TestDOCBinary_RejectsLowLetterRatio(t *testing.T) {
	data := buildDOC(t, "12345 67890 #### ", "%%%% 0000 ||||\r")

	_, err := DOCBinary{}.Extract(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no readable text")
}

func TestDOCBinary_RejectsBadHeader(t *testing.T) {
	data := buildDOC(t, "Valid text here.\r", "More valid text.\r")

	wrongOrder := append([]byte{}, data...)
	binary.LittleEndian.PutUint16(wrongOrder[28:], 0xFEFF)
	hugeFAT := append([]byte{}, data...)
	binary.LittleEndian.PutUint32(hugeFAT[44:], 1<<20)

	for _, bad := range [][]byte{wrongOrder, hugeFAT, data[:100]} {
		_, err := DOCBinary{}.Extract(context.Background(), bad)
		assert.ErrorIs(t, err, errNotWord)
	}
}

func TestStripFields(t *testing.T) {
	assert.Equal(t, "See page 4\tcell\nnext", stripFields("See page \x13 PAGEREF _Toc1 \\h \x144\x15\x07cell\x0Bnext"))
	assert.Equal(t, "outer", stripFields("\x13 IF \x13 inner \x14x\x15 \x14outer\x15"))
}
