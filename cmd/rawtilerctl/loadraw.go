package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/rawtiler/rawimage"
)

// loadRaw reads path as a binary 16-bit-per-sample PGM (Netpbm "P5",
// samples stored big-endian). Any maxval from 1 to 65535 is accepted, and
// every sample is read as two bytes whatever the maxval; the one-byte
// sample layout Netpbm uses for maxval < 256 is not read. This is not a camera RAW decoder — real
// RAW demosaic-precursor formats are out of scope — but it gives the CLI's
// input-path argument a real, working file format to exercise instead of
// only ever falling through to the synthetic frame.
func loadRaw(path string) (*rawimage.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("rawtilerctl: %s: %w", path, err)
	}
	if magic != "P5" {
		return nil, fmt.Errorf("rawtilerctl: %s: unsupported format %q (want P5)", path, magic)
	}

	width, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("rawtilerctl: %s: width: %w", path, err)
	}
	height, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("rawtilerctl: %s: height: %w", path, err)
	}
	maxval, err := readIntToken(br)
	if err != nil {
		return nil, fmt.Errorf("rawtilerctl: %s: maxval: %w", path, err)
	}
	if maxval <= 0 || maxval > 65535 {
		return nil, fmt.Errorf("rawtilerctl: %s: maxval %d out of range", path, maxval)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("rawtilerctl: %s: invalid dimensions %dx%d", path, width, height)
	}

	// Exactly one whitespace byte separates the header from the raster;
	// readToken already consumed it when it ended the maxval token.
	data := make([]uint16, width*height)
	buf := make([]byte, 2*width*height)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("rawtilerctl: %s: truncated raster: %w", path, err)
	}
	for i := range data {
		data[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
	}

	return rawimage.NewRawFromData(width, height, data), nil
}

// readToken skips leading whitespace and '#' comment lines, then returns
// the next run of non-whitespace bytes.
func readToken(br *bufio.Reader) (string, error) {
	var b []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if c == '#' {
			for {
				c, err := br.ReadByte()
				if err != nil {
					return "", err
				}
				if c == '\n' {
					break
				}
			}
			continue
		}
		if isSpace(c) {
			if len(b) > 0 {
				return string(b), nil
			}
			continue
		}
		b = append(b, c)
	}
}

func readIntToken(br *bufio.Reader) (int, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, err
	}
	var v int
	for _, c := range []byte(tok) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number: %q", tok)
		}
		v = v*10 + int(c-'0')
	}
	return v, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// synthesizeRaw produces a flat 640x480 frame for runs with no input path.
func synthesizeRaw() *rawimage.Raw {
	const w, h = 640, 480
	data := make([]uint16, w*h)
	for i := range data {
		data[i] = 512
	}
	return rawimage.NewRawFromData(w, h, data)
}
