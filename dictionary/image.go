package dictionary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"

	"henkan/connector"
	"henkan/model"
	"henkan/pos"
)

var imageMagic = [4]byte{'H', 'N', 'K', 'N'}

const imageVersion = 1

type sectionKind uint32

const (
	sectionPOS sectionKind = iota + 1
	sectionConnector
	sectionSystem
	sectionSuffix
)

const sectionHeaderSize = 4 + 8 + 8

// ImageData is everything a compiled image holds.
type ImageData struct {
	Table     *pos.Table
	Connector *connector.Matrix
	System    []model.Token
	Suffix    []model.Token
}

// WriteImage serializes data as a single image.
func WriteImage(w io.Writer, data *ImageData) error {
	var posBuf, connBuf bytes.Buffer
	if _, err := data.Table.WriteTo(&posBuf); err != nil {
		return fmt.Errorf("write pos table: %w", err)
	}
	if _, err := data.Connector.WriteTo(&connBuf); err != nil {
		return fmt.Errorf("write connector: %w", err)
	}
	sections := []struct {
		kind sectionKind
		data []byte
	}{
		{sectionPOS, posBuf.Bytes()},
		{sectionConnector, connBuf.Bytes()},
		{sectionSystem, encodeEntries(data.System)},
		{sectionSuffix, encodeEntries(data.Suffix)},
	}

	headerSize := 4 + 4 + 4 + sectionHeaderSize*len(sections)
	var header bytes.Buffer
	header.Write(imageMagic[:])
	binary.Write(&header, binary.LittleEndian, uint32(imageVersion))
	binary.Write(&header, binary.LittleEndian, uint32(len(sections)))
	offset := uint64(headerSize)
	for _, s := range sections {
		binary.Write(&header, binary.LittleEndian, uint32(s.kind))
		binary.Write(&header, binary.LittleEndian, offset)
		binary.Write(&header, binary.LittleEndian, uint64(len(s.data)))
		offset += uint64(len(s.data))
	}
	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	for _, s := range sections {
		if _, err := w.Write(s.data); err != nil {
			return err
		}
	}
	return nil
}

// encodeEntries lays out: count, offsets, then records of
// keyLen key valueLen value lid rid cost attributes.
func encodeEntries(tokens []model.Token) []byte {
	sorted := make([]model.Token, len(tokens))
	copy(sorted, tokens)
	sortTokens(sorted)

	var records bytes.Buffer
	offsets := make([]uint32, len(sorted))
	for i, t := range sorted {
		offsets[i] = uint32(records.Len())
		binary.Write(&records, binary.LittleEndian, uint16(len(t.Key)))
		records.WriteString(t.Key)
		binary.Write(&records, binary.LittleEndian, uint16(len(t.Value)))
		records.WriteString(t.Value)
		binary.Write(&records, binary.LittleEndian, t.LID)
		binary.Write(&records, binary.LittleEndian, t.RID)
		binary.Write(&records, binary.LittleEndian, int16(t.Cost))
		records.WriteByte(byte(t.Attributes))
	}
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(len(sorted)))
	binary.Write(&out, binary.LittleEndian, offsets)
	out.Write(records.Bytes())
	return out.Bytes()
}

// entrySection reads records straight from the mapped bytes.
type entrySection struct {
	count   int
	offsets []byte
	records []byte
}

func decodeEntries(b []byte) (*entrySection, error) {
	if len(b) < 4 {
		return nil, errors.New("entry section too short")
	}
	count := int(binary.LittleEndian.Uint32(b))
	if len(b) < 4+4*count {
		return nil, fmt.Errorf("entry section truncated: %d entries in %d bytes", count, len(b))
	}
	return &entrySection{
		count:   count,
		offsets: b[4 : 4+4*count],
		records: b[4+4*count:],
	}, nil
}

func (s *entrySection) record(i int) []byte {
	return s.records[binary.LittleEndian.Uint32(s.offsets[4*i:]):]
}

func (s *entrySection) Len() int { return s.count }

func (s *entrySection) Key(i int) string {
	rec := s.record(i)
	n := int(binary.LittleEndian.Uint16(rec))
	return string(rec[2 : 2+n])
}

func (s *entrySection) Value(i int) string {
	rec := s.record(i)
	kl := int(binary.LittleEndian.Uint16(rec))
	rec = rec[2+kl:]
	vl := int(binary.LittleEndian.Uint16(rec))
	return string(rec[2 : 2+vl])
}

func (s *entrySection) Token(i int) model.Token {
	rec := s.record(i)
	kl := int(binary.LittleEndian.Uint16(rec))
	key := string(rec[2 : 2+kl])
	rec = rec[2+kl:]
	vl := int(binary.LittleEndian.Uint16(rec))
	value := string(rec[2 : 2+vl])
	rec = rec[2+vl:]
	return model.Token{
		Key:        key,
		Value:      value,
		LID:        binary.LittleEndian.Uint16(rec[0:]),
		RID:        binary.LittleEndian.Uint16(rec[2:]),
		Cost:       int(int16(binary.LittleEndian.Uint16(rec[4:]))),
		Attributes: model.TokenAttribute(rec[6]),
	}
}

// Image is a memory-mapped compiled dictionary.
type Image struct {
	file *os.File
	data mmap.MMap

	table     *pos.Table
	connector *connector.Matrix
	system    *Lexicon
	suffix    *Lexicon
}

// OpenImage maps path read-only and validates its header.
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	img := &Image{file: f, data: data}
	if err := img.parse(); err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (img *Image) parse() error {
	b := []byte(img.data)
	if len(b) < 12 || [4]byte(b[:4]) != imageMagic {
		return errors.New("not a dictionary image")
	}
	if v := binary.LittleEndian.Uint32(b[4:]); v != imageVersion {
		return fmt.Errorf("unsupported image version %d", v)
	}
	n := int(binary.LittleEndian.Uint32(b[8:]))
	if len(b) < 12+n*sectionHeaderSize {
		return errors.New("image header truncated")
	}
	for i := 0; i < n; i++ {
		h := b[12+i*sectionHeaderSize:]
		kind := sectionKind(binary.LittleEndian.Uint32(h))
		off := binary.LittleEndian.Uint64(h[4:])
		size := binary.LittleEndian.Uint64(h[12:])
		if off+size > uint64(len(b)) {
			return fmt.Errorf("section %d out of bounds", kind)
		}
		sec := b[off : off+size]
		switch kind {
		case sectionPOS:
			t, err := pos.ReadTable(bytes.NewReader(sec))
			if err != nil {
				return err
			}
			img.table = t
		case sectionConnector:
			m, err := connector.FromBytes(sec)
			if err != nil {
				return err
			}
			img.connector = m
		case sectionSystem, sectionSuffix:
			es, err := decodeEntries(sec)
			if err != nil {
				return err
			}
			if kind == sectionSystem {
				img.system = newLexicon(es)
			} else {
				img.suffix = newLexicon(es)
			}
		}
	}
	if img.table == nil || img.connector == nil || img.system == nil || img.suffix == nil {
		return errors.New("image is missing a section")
	}
	return nil
}

func (img *Image) Table() *pos.Table { return img.table }

func (img *Image) Connector() *connector.Matrix { return img.connector }

func (img *Image) System() *Lexicon { return img.system }

func (img *Image) Suffix() *Lexicon { return img.suffix }

// Close unmaps the image. Lexicons of the image must not be used after.
func (img *Image) Close() error {
	var err error
	if img.data != nil {
		err = img.data.Unmap()
		img.data = nil
	}
	if img.file != nil {
		if cerr := img.file.Close(); err == nil {
			err = cerr
		}
		img.file = nil
	}
	return err
}
