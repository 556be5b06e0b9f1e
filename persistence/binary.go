package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteHeader writes the fixed header, stamping the magic tag and the
// current version.
func WriteHeader(w io.Writer, header *Header) error {
	header.Magic = Magic
	header.Version = Version
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the fixed header.
func ReadHeader(r io.Reader) (*Header, error) {
	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, Truncate(err)
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	return &header, nil
}

// Truncate maps short reads to ErrTruncated, leaving other errors as
// they are.
func Truncate(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}

// SaveToFile writes a file atomically: the payload goes to a temporary
// file in the same directory, which is fsynced and renamed over the
// destination. On error, nothing is left behind.
func SaveToFile(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromFile opens the file and hands a buffered reader to the
// callback.
func LoadFromFile(path string, read func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return read(bufio.NewReader(f))
}
