package loader

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	Magic   = "\x7fUPG"
	Version = 1

	// CodeBase is where the image text is mapped.
	CodeBase uint32 = 0x08048000
)

var ErrBadImage = errors.New("bad executable image")

// Header starts every executable image. It is followed by EntryLen bytes
// naming the entry point, then arbitrary text.
type Header struct {
	Magic    [4]byte
	Version  uint16
	EntryLen uint16
	DataSize uint32
}

var headerSize = binary.Size(Header{})

// PreparedImage is a parsed executable, shared between processes running
// the same bytes.
type PreparedImage struct {
	Header Header
	Entry  string
	Size   uint32
}

// Build returns an executable image that runs the named entry point with
// a writable data segment of dataSize bytes.
func Build(entry string, dataSize uint32) []byte {
	var buf bytes.Buffer

	hdr := Header{
		Version:  Version,
		EntryLen: uint16(len(entry)),
		DataSize: dataSize,
	}
	copy(hdr.Magic[:], Magic)

	binary.Write(&buf, binary.LittleEndian, hdr)
	buf.WriteString(entry)

	return buf.Bytes()
}

func prepare(data []byte) (*PreparedImage, error) {
	if len(data) < headerSize {
		return nil, errors.Wrapf(ErrBadImage, "image of %d bytes has no header", len(data))
	}

	var hdr Header

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr)
	if err != nil {
		return nil, errors.Wrap(ErrBadImage, err.Error())
	}

	if string(hdr.Magic[:]) != Magic {
		return nil, errors.Wrapf(ErrBadImage, "bad magic %q", hdr.Magic[:])
	}

	if hdr.Version != Version {
		return nil, errors.Wrapf(ErrBadImage, "unsupported version %d", hdr.Version)
	}

	end := headerSize + int(hdr.EntryLen)
	if hdr.EntryLen == 0 || end > len(data) {
		return nil, errors.Wrapf(ErrBadImage, "entry length %d out of range", hdr.EntryLen)
	}

	return &PreparedImage{
		Header: hdr,
		Entry:  string(data[headerSize:end]),
		Size:   uint32(len(data)),
	}, nil
}
