package extractor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	fibMagic       = 0xA5EC
	fibWhichTable  = 0x0200
	fibEncrypted   = 0x0100
	pcdCompressed  = 0x40000000
	clxPcdt        = 0x02
	clxPrc         = 0x01
	fcClxPair      = 33 // fcClx index in FibRgFcLcb97
	minLetterRatio = 0.5
	maxPieceCount  = 1 << 20
	wordStreamName = "WordDocument"
	table0Name     = "0Table"
	table1Name     = "1Table"
)

var errNotWord = errors.New("not a Word 97-2003 document")

// DOCBinary reads the main document text of a legacy Word 97-2003 file.
// The compound file is opened with mscfb and the text is assembled from the
// piece table stored in the table stream.
type DOCBinary struct{}

func (DOCBinary) Name() string { return "doc-binary" }

func (DOCBinary) Extract(_ context.Context, data []byte) (res *Result, err error) {
	defer recoverParser(&err)

	if !bytes.HasPrefix(data, oleSignature) {
		return nil, fmt.Errorf("%w: missing OLE2 signature", errNotWord)
	}
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	streams, err := readStreams(data, wordStreamName, table0Name, table1Name)
	if err != nil {
		return nil, err
	}
	word := streams[wordStreamName]
	if len(word) < 32 {
		return nil, fmt.Errorf("%w: no WordDocument stream", errNotWord)
	}

	info, err := parseFIB(word)
	if err != nil {
		return nil, err
	}
	table := streams[table0Name]
	if info.whichTable == 1 {
		table = streams[table1Name]
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: table stream missing", errNotWord)
	}

	raw, err := readPieces(word, table, info)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(clean(stripFields(raw)))
	if ratio := letterRatio(text); ratio < minLetterRatio {
		return nil, fmt.Errorf("no readable text (letter ratio %.2f)", ratio)
	}
	return &Result{Text: text}, nil
}

// checkHeader validates the fixed compound file header before mscfb sizes its
// tables from it.
func checkHeader(data []byte) error {
	le := binary.LittleEndian
	if len(data) < 512 {
		return fmt.Errorf("%w: truncated header", errNotWord)
	}
	if le.Uint16(data[28:]) != 0xFFFE {
		return fmt.Errorf("%w: bad byte order mark", errNotWord)
	}
	major, shift := le.Uint16(data[26:]), le.Uint16(data[30:])
	if !(major == 3 && shift == 9) && !(major == 4 && shift == 12) {
		return fmt.Errorf("%w: version %d with sector shift %d", errNotWord, major, shift)
	}
	fatSectors := uint64(le.Uint32(data[44:]))
	if fatSectors == 0 || fatSectors<<shift > uint64(len(data)) {
		return fmt.Errorf("%w: FAT larger than file", errNotWord)
	}
	return nil
}

// readStreams returns the named top-level streams of a compound file.
func readStreams(data []byte, names ...string) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotWord, err)
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := make(map[string][]byte)
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotWord, err)
		}
		if !wanted[entry.Name] || len(entry.Path) > 0 {
			continue
		}
		content, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
		}
		out[entry.Name] = content
	}
	return out, nil
}

type fib struct {
	whichTable int
	ccpText    uint32
	fcClx      uint32
	lcbClx     uint32
}

// parseFIB walks the variable-length File Information Block up to fcClx.
func parseFIB(word []byte) (fib, error) {
	le := binary.LittleEndian
	var f fib
	if le.Uint16(word[0:]) != fibMagic {
		return f, fmt.Errorf("%w: bad FIB magic", errNotWord)
	}
	flags := le.Uint16(word[0x0A:])
	if flags&fibEncrypted != 0 {
		return f, errors.New("document is encrypted")
	}
	if flags&fibWhichTable != 0 {
		f.whichTable = 1
	}

	pos := 32
	if pos+2 > len(word) {
		return f, fmt.Errorf("%w: truncated FIB", errNotWord)
	}
	pos += 2 + 2*int(le.Uint16(word[pos:]))

	if pos+2 > len(word) {
		return f, fmt.Errorf("%w: truncated FIB", errNotWord)
	}
	cslw := int(le.Uint16(word[pos:]))
	lw := pos + 2
	if cslw < 4 || lw+4*cslw > len(word) {
		return f, fmt.Errorf("%w: truncated FIB", errNotWord)
	}
	f.ccpText = le.Uint32(word[lw+12:])
	pos = lw + 4*cslw

	if pos+2 > len(word) {
		return f, fmt.Errorf("%w: truncated FIB", errNotWord)
	}
	pairs := int(le.Uint16(word[pos:]))
	blob := pos + 2
	if pairs <= fcClxPair || blob+8*(fcClxPair+1) > len(word) {
		return f, fmt.Errorf("%w: FIB has no piece table", errNotWord)
	}
	f.fcClx = le.Uint32(word[blob+8*fcClxPair:])
	f.lcbClx = le.Uint32(word[blob+8*fcClxPair+4:])
	return f, nil
}

// readPieces concatenates the main document pieces described by the Clx.
func readPieces(word, table []byte, f fib) (string, error) {
	le := binary.LittleEndian
	start, end := uint64(f.fcClx), uint64(f.fcClx)+uint64(f.lcbClx)
	if f.lcbClx == 0 || end > uint64(len(table)) {
		return "", fmt.Errorf("%w: piece table out of range", errNotWord)
	}
	clx := table[start:end]

	for len(clx) > 0 && clx[0] == clxPrc {
		if len(clx) < 3 {
			return "", fmt.Errorf("%w: truncated Clx", errNotWord)
		}
		skip := 3 + int(int16(le.Uint16(clx[1:])))
		if skip < 3 || skip > len(clx) {
			return "", fmt.Errorf("%w: truncated Clx", errNotWord)
		}
		clx = clx[skip:]
	}
	if len(clx) < 5 || clx[0] != clxPcdt {
		return "", fmt.Errorf("%w: Clx has no PlcPcd", errNotWord)
	}
	lcb := int(le.Uint32(clx[1:]))
	plc := clx[5:]
	if lcb < 16 || lcb > len(plc) || (lcb-4)%12 != 0 {
		return "", fmt.Errorf("%w: malformed PlcPcd", errNotWord)
	}
	n := (lcb - 4) / 12
	if n > maxPieceCount {
		return "", fmt.Errorf("%w: too many pieces", errNotWord)
	}

	win1252 := charmap.Windows1252.NewDecoder()
	utf16 := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()

	var sb strings.Builder
	remaining := int(f.ccpText)
	for i := 0; i < n && remaining > 0; i++ {
		cpStart := int(le.Uint32(plc[4*i:]))
		cpEnd := int(le.Uint32(plc[4*(i+1):]))
		chars := min(cpEnd-cpStart, remaining)
		if chars <= 0 {
			continue
		}
		pcd := plc[4*(n+1)+8*i:]
		fc := le.Uint32(pcd[2:])

		var (
			decoded []byte
			err     error
		)
		if fc&pcdCompressed != 0 {
			off := int(fc&^pcdCompressed) / 2
			if off+chars > len(word) {
				return "", fmt.Errorf("%w: piece %d out of range", errNotWord, i)
			}
			decoded, err = win1252.Bytes(word[off : off+chars])
		} else {
			off := int(fc)
			if off+2*chars > len(word) {
				return "", fmt.Errorf("%w: piece %d out of range", errNotWord, i)
			}
			decoded, err = utf16.Bytes(word[off : off+2*chars])
		}
		if err != nil {
			return "", fmt.Errorf("decode piece %d: %w", i, err)
		}
		sb.Write(decoded)
		remaining -= chars
	}
	return sb.String(), nil
}

// stripFields drops field instructions and Word control marks, keeping field
// results and mapping cell and line marks to whitespace.
func stripFields(s string) string {
	var sb strings.Builder
	var inCode []bool
	for _, r := range s {
		switch r {
		case 0x13:
			inCode = append(inCode, true)
			continue
		case 0x14:
			if len(inCode) > 0 {
				inCode[len(inCode)-1] = false
			}
			continue
		case 0x15:
			if len(inCode) > 0 {
				inCode = inCode[:len(inCode)-1]
			}
			continue
		}
		if slices.Contains(inCode, true) {
			continue
		}
		switch r {
		case 0x07:
			sb.WriteByte('\t')
		case 0x0B, 0x0C, 0x0E:
			sb.WriteByte('\n')
		case 0x01, 0x08:
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// letterRatio is the share of letters among the non-space runes of s.
func letterRatio(s string) float64 {
	var letters, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}
