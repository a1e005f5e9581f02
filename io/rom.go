package io

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Rom is a program image: the words loaded into memory at reset.
type Rom struct {
	Capacity int      // Maximum number of words, or 0 for no limit.
	Data     []uint32 // Image words, in address order.
}

// Words iterates over the image words.
func (rc *Rom) Words() iter.Seq[uint32] {
	return slices.Values(rc.Data)
}

// Full returns true if no more words can be added to the image.
func (rc *Rom) Full() bool {
	return rc.Capacity > 0 && len(rc.Data) >= rc.Capacity
}

// ReadHex replaces the image with whitespace separated hexadecimal
// words from a reader. An optional 0x prefix is permitted.
// Reading stops silently at the first malformed word, or when the
// image is full. Only errors from the reader itself are returned.
func (rc *Rom) ReadHex(in io.Reader) (err error) {
	rc.Data = make([]uint32, 0, rc.Capacity)

	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)

	for !rc.Full() && scanner.Scan() {
		token := scanner.Text()
		token = strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
		var value uint64
		value, err = strconv.ParseUint(token, 16, 32)
		if err != nil {
			err = nil
			return
		}
		rc.Data = append(rc.Data, uint32(value))
	}

	err = scanner.Err()
	if err != nil {
		err = &ErrRead{Words: len(rc.Data), Err: err}
	}

	return
}

// WriteHex writes the image, one word per line.
func (rc *Rom) WriteHex(out io.Writer) (err error) {
	w := bufio.NewWriter(out)
	for _, data := range rc.Data {
		_, err = fmt.Fprintf(w, "%08x\n", data)
		if err != nil {
			return
		}
	}

	err = w.Flush()
	return
}
