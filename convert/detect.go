package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

const (
	bookExt  = ".xml"
	sniffLen = 1024
)

// bookType is registered with filetype so book sources could be recognized
// along with other known formats.
var bookType = filetype.NewType("gbook", "application/x-gbook+xml")

func init() {
	filetype.AddMatcher(bookType, matchBook)
}

// matchBook expects UTF-8 head of the file. It skips XML declaration,
// processing instructions, comments and doctype looking for <book> root.
func matchBook(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte{0xEF, 0xBB, 0xBF})
	for {
		buf = bytes.TrimLeft(buf, " \t\r\n")
		switch {
		case bytes.HasPrefix(buf, []byte("<?")):
			buf = skipPast(buf, "?>")
		case bytes.HasPrefix(buf, []byte("<!--")):
			buf = skipPast(buf, "-->")
		case bytes.HasPrefix(buf, []byte("<!")):
			buf = skipPast(buf, ">")
		case bytes.HasPrefix(buf, []byte("<book")):
			rest := buf[len("<book"):]
			// head may be cut right after tag name
			return len(rest) == 0 || strings.IndexByte(" \t\r\n/>", rest[0]) >= 0
		default:
			return false
		}
		if buf == nil {
			return false
		}
	}
}

func skipPast(buf []byte, marker string) []byte {
	i := bytes.Index(buf, []byte(marker))
	if i < 0 {
		return nil
	}
	return buf[i+len(marker):]
}

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark. UTF-32LE must be checked before
// UTF-16LE as they share first two bytes.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader returns reader producing UTF-8 with BOM removed. Unknown
// encoding is returned as is, declared charset is handled by importer.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	default:
		// this should never happen
		panic("unexpected source encoding")
	}
}

// sniff reads head of the stream and checks if it looks like a book.
func sniff(r io.Reader) (bool, srcEncoding, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, encUnknown, err
	}
	buf = buf[:n]

	enc := detectUTF(buf)
	head := buf
	if enc != encUnknown && enc != encUTF8 {
		// decoding may stop in the middle of a character at the end of the
		// buffer, what was decoded is enough
		head, _ = io.ReadAll(selectReader(bytes.NewReader(buf), enc))
	}
	if !filetype.Is(head, bookType.Extension) {
		return false, encUnknown, nil
	}
	return true, enc, nil
}

func isBookFile(path string) (bool, srcEncoding, error) {
	if !strings.EqualFold(filepath.Ext(path), bookExt) {
		return false, encUnknown, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	return sniff(f)
}

func isBookInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !strings.EqualFold(filepath.Ext(f.FileHeader.Name), bookExt) {
		return false, encUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	return sniff(r)
}

func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	// zip signature is in the first 4 bytes
	buf := make([]byte, 262)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return filetype.Is(buf[:n], "zip"), nil
}
