package baseline

import (
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const fieldCount = 4

// Representable reports whether path survives a write and read of the
// baseline file unchanged.
func Representable(path string) bool {
	return !strings.Contains(path, "\r\n")
}

// Encode writes the snapshot in baseline file format. It fails with
// ErrUnrepresentablePath before writing anything if a path cannot be stored.
func Encode(w io.Writer, s *Snapshot) error {
	for _, r := range s.Records() {
		if !Representable(r.Path) {
			return fmt.Errorf("%w: %q", ErrUnrepresentablePath, r.Path)
		}
	}

	bw := bufio.NewWriter(w)
	for _, r := range s.Records() {
		fields := [fieldCount]string{
			r.Path,
			r.Digest,
			strconv.FormatInt(r.ModTime.Unix(), 10),
			strconv.FormatInt(r.Size, 10),
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
			bw.WriteByte('"')
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode parses baseline file content. name is only used in errors.
func Decode(r io.Reader, name string) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	s := newOrderedSnapshot(1024)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &CorruptError{Path: name, Line: pe.Line, Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("failed to read baseline %s: %w", name, err)
		}

		line, _ := cr.FieldPos(0)
		rec, err := parseRow(row)
		if err != nil {
			return nil, &CorruptError{Path: name, Line: line, Reason: err.Error()}
		}
		if err := s.add(rec); err != nil {
			return nil, &CorruptError{Path: name, Line: line, Reason: err.Error()}
		}
	}
	return s, nil
}

func parseRow(row []string) (FileRecord, error) {
	// Rows written by older releases end in a trailing comma.
	if len(row) == fieldCount+1 && row[fieldCount] == "" {
		row = row[:fieldCount]
	}
	if len(row) != fieldCount {
		return FileRecord{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(row))
	}

	path, sum, mtime, size := row[0], row[1], row[2], row[3]
	if path == "" {
		return FileRecord{}, errors.New("empty path")
	}
	if sum == "" {
		return FileRecord{}, errors.New("empty digest")
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return FileRecord{}, fmt.Errorf("digest is not hex: %q", sum)
	}

	modTime, err := ParseModTime(mtime)
	if err != nil {
		return FileRecord{}, err
	}

	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil || n < 0 {
		return FileRecord{}, fmt.Errorf("invalid size %q", size)
	}

	return FileRecord{
		Path:    path,
		Digest:  strings.ToLower(sum),
		ModTime: modTime,
		Size:    n,
	}, nil
}

// ParseModTime accepts unix seconds or the legacy ANSIC layout in local time.
func ParseModTime(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	if t, err := time.ParseInLocation(time.ANSIC, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid modification time %q", s)
}
