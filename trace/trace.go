// Package trace provides branch traces: resolved conditional branches in
// program order, read from text files or generated synthetically.
//
// A trace file holds one branch per line:
//
//	<thread> <address> <target> <T|N> [I]
//
// Addresses accept any strconv base prefix (0x for hex). T marks a taken
// branch, N a not-taken one, and a trailing I an indirect branch. Blank
// lines and lines starting with # are ignored.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Branch is one resolved conditional branch.
type Branch struct {
	// Thread is the simulated hardware thread that executed the branch.
	Thread int
	// Address is the address of the branch instruction.
	Address uint64
	// Target is the taken target.
	Target uint64
	// Taken is the resolved direction.
	Taken bool
	// Indirect marks an indirect branch.
	Indirect bool
}

// String renders the branch in trace file syntax.
func (b Branch) String() string {
	dir := "N"
	if b.Taken {
		dir = "T"
	}

	s := fmt.Sprintf("%d %#x %#x %s", b.Thread, b.Address, b.Target, dir)
	if b.Indirect {
		s += " I"
	}

	return s
}

// Reader reads branches from a text trace.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next branch, or io.EOF at the end of the trace.
func (r *Reader) Next() (Branch, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		b, err := parseBranch(text)
		if err != nil {
			return Branch{}, errors.Wrapf(err, "line %d", r.line)
		}

		return b, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Branch{}, errors.Wrap(err, "failed to read trace")
	}

	return Branch{}, io.EOF
}

// ReadAll reads every remaining branch.
func (r *Reader) ReadAll() ([]Branch, error) {
	var branches []Branch

	for {
		b, err := r.Next()
		if err == io.EOF {
			return branches, nil
		}
		if err != nil {
			return nil, err
		}

		branches = append(branches, b)
	}
}

func parseBranch(text string) (Branch, error) {
	fields := strings.Fields(text)
	if len(fields) < 4 || len(fields) > 5 {
		return Branch{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(fields))
	}

	var (
		b   Branch
		err error
	)

	if b.Thread, err = strconv.Atoi(fields[0]); err != nil || b.Thread < 0 {
		return Branch{}, fmt.Errorf("invalid thread %q", fields[0])
	}
	if b.Address, err = strconv.ParseUint(fields[1], 0, 64); err != nil {
		return Branch{}, fmt.Errorf("invalid address %q", fields[1])
	}
	if b.Target, err = strconv.ParseUint(fields[2], 0, 64); err != nil {
		return Branch{}, fmt.Errorf("invalid target %q", fields[2])
	}

	switch fields[3] {
	case "T", "t":
		b.Taken = true
	case "N", "n":
	default:
		return Branch{}, fmt.Errorf("invalid direction %q", fields[3])
	}

	if len(fields) == 5 {
		if fields[4] != "I" && fields[4] != "i" {
			return Branch{}, fmt.Errorf("invalid flag %q", fields[4])
		}
		b.Indirect = true
	}

	return b, nil
}

// Load reads a whole trace file.
func Load(path string) ([]Branch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open trace %q", path)
	}
	defer func() { _ = f.Close() }()

	branches, err := NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "trace %q", path)
	}

	return branches, nil
}

// Writer writes branches as a text trace.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one branch.
func (w *Writer) Write(b Branch) error {
	if _, err := fmt.Fprintln(w.w, b.String()); err != nil {
		return errors.Wrap(err, "failed to write trace")
	}
	return nil
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return errors.Wrap(w.w.Flush(), "failed to flush trace")
}
