package uxf

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Load reads UXF text from r, transparently decompressing gzip content
// (detected by its magic bytes).
func Load(r io.Reader) (*Uxf, error) {
	return LoadWithOptions(r, ParseOptions{})
}

// LoadWithOptions reads UXF text from r with the given options.
func LoadWithOptions(r io.Reader, opts ParseOptions) (*Uxf, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := decodeDocument(data, opts)
	if err != nil {
		return nil, err
	}
	return ParseWithOptions(text, opts)
}

// LoadFile reads the named UXF file; a .uxf.gz file (or any gzip
// content) is decompressed transparently.
func LoadFile(filename string) (*Uxf, error) {
	return LoadFileWithOptions(filename, ParseOptions{})
}

// LoadFileWithOptions reads the named UXF file with the given options.
func LoadFileWithOptions(filename string, opts ParseOptions) (*Uxf, error) {
	if opts.Filename == "" {
		opts.Filename = filename
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadWithOptions(file, opts)
}

// decodeDocument gunzips data when it carries the gzip magic.
func decodeDocument(data []byte, opts ParseOptions) (string, error) {
	if !isGzip(data) {
		return string(data), nil
	}
	if opts.OnError == nil {
		opts.OnError = DefaultErrorHandler
	}
	if opts.Filename == "" {
		opts.Filename = "-"
	}
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", impFail(opts, 0, CodeImpGzip, "cannot decompress: %s", err)
	}
	defer reader.Close()
	plain, err := io.ReadAll(reader)
	if err != nil {
		return "", impFail(opts, 0, CodeImpGzip, "cannot decompress: %s", err)
	}
	return string(plain), nil
}

// WriteCompressed dumps the document to w as gzip-compressed UXF text.
func WriteCompressed(w io.Writer, u *Uxf, f Format) error {
	text, err := DumpWithFormat(u, f)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(w)
	if _, err := io.WriteString(gz, text); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// DumpFile writes the document to the named file with DefaultFormat,
// gzip-compressing when the filename ends in .gz.
func DumpFile(filename string, u *Uxf) error {
	return DumpFileWithFormat(filename, u, DefaultFormat())
}

// DumpFileWithFormat writes the document to the named file, compressing
// when the filename ends in .gz.
func DumpFileWithFormat(filename string, u *Uxf, f Format) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if strings.HasSuffix(filename, ".gz") {
		err = WriteCompressed(file, u, f)
	} else {
		err = Write(file, u, f)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Lint parses text and returns every diagnostic produced, including
// warnings, without writing anything to stderr.
func Lint(text, filename string) []*Error {
	var errs []*Error
	opts := ParseOptions{Filename: filename, OnError: CollectingHandler(&errs)}
	_, _ = ParseWithOptions(text, opts)
	return errs
}
