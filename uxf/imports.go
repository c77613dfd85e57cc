package uxf

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

const defaultImportTimeout = 30 * time.Second

// systemImports is the built-in registry of importable ttype libraries.
// A system import's source has no dot and no path separator.
var systemImports = map[string]string{
	"complex": "uxf 1.0 complex\n" +
		"=Complex Real:real Imag:real\n" +
		"[]\n",
	"fraction": "uxf 1.0 fraction\n" +
		"=Fraction numerator:int denominator:int\n" +
		"[]\n",
	"numeric": "uxf 1.0 numeric\n" +
		"=Complex Real:real Imag:real\n" +
		"=Fraction numerator:int denominator:int\n" +
		"[]\n",
	"ttype-test": "uxf 1.0 ttype-test\n" +
		"=Fraction numerator:int denominator:int\n" +
		"=Point2D x:real y:real\n" +
		"=Point3D x:real y:real z:real\n" +
		"=RGB red:int green:int blue:int\n" +
		"=RGBA red:int green:int blue:int alpha:int\n" +
		"[]\n",
}

// RegisterSystemImport adds (or replaces) a system import. Registration
// is process-wide and must not race with loads.
func RegisterSystemImport(name, text string) {
	systemImports[name] = text
}

// importResolver fetches and parses import sources, remembering the set
// of sources currently being resolved so cycles are broken rather than
// recursed into. One resolver is shared by a load and all its nested
// imports.
type importResolver struct {
	timeout time.Duration
	active  map[string]bool
}

func newImportResolver(timeout time.Duration) *importResolver {
	if timeout <= 0 {
		timeout = defaultImportTimeout
	}
	return &importResolver{timeout: timeout, active: map[string]bool{}}
}

// resolve loads the document an import directive names. Only its
// tclasses are of interest to the caller; its value, custom text, and
// comments are discarded.
func (r *importResolver) resolve(source string, opts ParseOptions,
	line int) (*Uxf, error) {
	key, text, display, err := r.fetch(source, opts, line)
	if err != nil {
		return nil, err
	}
	if r.active[key] {
		return nil, impFail(opts, line, CodeImpCycle,
			"circular import of %q", source)
	}
	r.active[key] = true
	defer delete(r.active, key)

	imported, err := ParseWithOptions(text, ParseOptions{
		Filename:      display,
		OnError:       opts.OnError,
		ImportTimeout: r.timeout,
		resolver:      r,
		noUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

// fetch locates and reads an import source, returning a normalized cycle
// key, the decoded text, and a display name for diagnostics.
func (r *importResolver) fetch(source string, opts ParseOptions,
	line int) (key, text, display string, err error) {
	if isSystemImport(source) {
		registered, ok := systemImports[source]
		if !ok {
			return "", "", "", impFail(opts, line, CodeImpNotFound,
				"unknown system import %q", source)
		}
		return "system:" + source, registered, source, nil
	}

	if strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") {
		data, ferr := r.fetchURL(source)
		if ferr != nil {
			return "", "", "", impFail(opts, line, CodeImpFetch,
				"cannot fetch import %q: %s", source, ferr)
		}
		text, err = decodeImport(data, source, opts, line)
		return source, text, source, err
	}

	path, ok := r.findFile(source, opts.Filename)
	if !ok {
		return "", "", "", impFail(opts, line, CodeImpNotFound,
			"cannot find import %q on any search path", source)
	}
	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return "", "", "", impFail(opts, line, CodeImpNotFound,
			"cannot read import %q: %s", source, rerr)
	}
	if abs, aerr := filepath.Abs(path); aerr == nil {
		key = abs
	} else {
		key = path
	}
	text, err = decodeImport(data, source, opts, line)
	return key, text, path, err
}

// isSystemImport reports whether source names a built-in registry entry:
// no dot and no path separator.
func isSystemImport(source string) bool {
	return !strings.ContainsAny(source, "./\\")
}

// findFile searches for a relative import: the importing file's own
// directory first, then each UXF_PATH entry, then the current working
// directory. Absolute paths are used as given.
func (r *importResolver) findFile(source, importer string) (string, bool) {
	if filepath.IsAbs(source) {
		if fileExists(source) {
			return source, true
		}
		return "", false
	}
	var dirs []string
	if importer != "" && importer != "-" {
		dirs = append(dirs, filepath.Dir(importer))
	}
	if uxfPath := os.Getenv("UXF_PATH"); uxfPath != "" {
		dirs = append(dirs, filepath.SplitList(uxfPath)...)
	}
	dirs = append(dirs, ".")
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, source)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (r *importResolver) fetchURL(url string) ([]byte, error) {
	client := &http.Client{Timeout: r.timeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// decodeImport gunzips the raw bytes when they carry the gzip magic and
// returns them as text.
func decodeImport(data []byte, source string, opts ParseOptions,
	line int) (string, error) {
	if isGzip(data) {
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", impFail(opts, line, CodeImpGzip,
				"cannot decompress import %q: %s", source, err)
		}
		defer reader.Close()
		plain, err := io.ReadAll(reader)
		if err != nil {
			return "", impFail(opts, line, CodeImpGzip,
				"cannot decompress import %q: %s", source, err)
		}
		return string(plain), nil
	}
	return string(data), nil
}

// isGzip reports whether data starts with the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func impFail(opts ParseOptions, line int, code, format string,
	args ...any) error {
	err := &Error{
		Line:     line,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Filename: opts.Filename,
		Fatal:    true,
	}
	opts.OnError(err)
	return err
}
