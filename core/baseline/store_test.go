package baseline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleSnapshot() *Snapshot {
	return NewSnapshot([]FileRecord{
		{Path: "/usr/bin/ls", Digest: "aa11", ModTime: time.Unix(1700000000, 0), Size: 142312},
		{Path: `/tmp/odd, "name".txt`, Digest: "bb22", ModTime: time.Unix(1700000100, 0), Size: 7},
		{Path: "/bin/cat", Digest: "cc33", ModTime: time.Unix(1600000000, 0), Size: 0},
	})
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot([]FileRecord{
		{Path: "/b", Digest: "01"},
		{Path: "/a", Digest: "02"},
		{Path: "/b", Digest: "03"},
	})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, "/a", s.Records()[0].Path)
	assert.Equal(t, "/b", s.Records()[1].Path)

	rec, ok := s.Lookup("/b")
	require.True(t, ok)
	assert.Equal(t, "03", rec.Digest, "last record for a path wins")
	assert.False(t, s.Contains("/c"))

	var nilSnap *Snapshot
	assert.Equal(t, 0, nilSnap.Len())
	assert.Nil(t, nilSnap.Records())
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleSnapshot()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"/bin/cat","cc33","1600000000","0"`, lines[0])
	assert.Equal(t, `"/tmp/odd, ""name"".txt","bb22","1700000100","7"`, lines[1])

	got, err := Decode(&buf, "mem")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot().Records(), got.Records())
}

func TestEncode_LineBreaksInPaths(t *testing.T) {
	t.Run("lone LF and CR survive", func(t *testing.T) {
		snap := NewSnapshot([]FileRecord{
			{Path: "/tmp/a\nb", Digest: "aa", ModTime: time.Unix(1, 0), Size: 1},
			{Path: "/tmp/c\rd", Digest: "bb", ModTime: time.Unix(2, 0), Size: 2},
		})
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, snap))

		got, err := Decode(&buf, "mem")
		require.NoError(t, err)
		assert.Equal(t, snap.Records(), got.Records())
	})

	t.Run("CR LF is rejected", func(t *testing.T) {
		snap := NewSnapshot([]FileRecord{
			{Path: "/bin/ls", Digest: "aa", ModTime: time.Unix(1, 0), Size: 1},
			{Path: "/tmp/a\r\nb", Digest: "bb", ModTime: time.Unix(2, 0), Size: 2},
		})
		var buf bytes.Buffer
		err := Encode(&buf, snap)
		assert.ErrorIs(t, err, ErrUnrepresentablePath)
		assert.Zero(t, buf.Len())
		assert.False(t, Representable("/tmp/a\r\nb"))
		assert.True(t, Representable("/tmp/a\nb"))
	})
}

func TestDecode_LegacyRows(t *testing.T) {
	legacy := `"/bin/ls","ABCDEF","Mon Jan  2 15:04:05 2006","1024",` + "\n" +
		`"/bin/cp","012345","Tue Feb 14 09:30:00 2023","2048"` + "\n"

	s, err := Decode(strings.NewReader(legacy), "legacy.db")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	ls, ok := s.Lookup("/bin/ls")
	require.True(t, ok)
	assert.Equal(t, "abcdef", ls.Digest)
	assert.Equal(t, int64(1024), ls.Size)
	want := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.Local)
	assert.True(t, want.Equal(ls.ModTime))
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		reason string
	}{
		{"too few fields", "\"/a\",\"aa\",\"1\"\n", 1, "expected 4 fields"},
		{"too many fields", "\"/a\",\"aa\",\"1\",\"2\",\"x\"\n", 1, "expected 4 fields"},
		{"bad size", "\"/a\",\"aa\",\"1\",\"big\"\n", 1, "invalid size"},
		{"negative size", "\"/a\",\"aa\",\"1\",\"-4\"\n", 1, "invalid size"},
		{"bad mtime", "\"/a\",\"aa\",\"yesterday\",\"4\"\n", 1, "invalid modification time"},
		{"non hex digest", "\"/a\",\"zz\",\"1\",\"4\"\n", 1, "not hex"},
		{"empty path", "\"\",\"aa\",\"1\",\"4\"\n", 1, "empty path"},
		{"duplicate path", "\"/a\",\"aa\",\"1\",\"4\"\n\"/b\",\"aa\",\"1\",\"4\"\n\"/a\",\"bb\",\"1\",\"4\"\n", 3, "duplicate path"},
		{"bare quote", "\"/a\"x,\"aa\",\"1\",\"4\"\n", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), "ids.db")
			require.Error(t, err)

			var corrupt *CorruptError
			require.True(t, errors.As(err, &corrupt), "got %T", err)
			assert.Equal(t, "ids.db", corrupt.Path)
			assert.Equal(t, tt.line, corrupt.Line)
			assert.Contains(t, corrupt.Reason, tt.reason)
		})
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "ids.db"), zap.NewNop())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(store.Location(), nil, 0o600))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound, "an empty file counts as no baseline")
}

func TestFileStore_ReplaceAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "ids.db")
	store := NewFileStore(path, nil)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, sampleSnapshot()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot().Records(), loaded.Records())

	next := NewSnapshot([]FileRecord{{Path: "/only", Digest: "ff", ModTime: time.Unix(5, 0), Size: 1}})
	require.NoError(t, store.Replace(ctx, next))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.db")
	require.NoError(t, os.WriteFile(path, []byte("\"/a\",\"aa\"\n"), 0o600))

	_, err := NewFileStore(path, nil).Load(context.Background())
	var corrupt *CorruptError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
	assert.Contains(t, err.Error(), path+":1")
}

func TestFileStore_ReplaceCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.db")
	store := NewFileStore(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Replace(ctx, sampleSnapshot()), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_Lock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.db")
	first := NewFileStore(path, nil)
	second := NewFileStore(path, nil)

	require.NoError(t, first.Lock())
	err := second.Lock()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())

	require.NoError(t, second.Lock())
	require.NoError(t, second.Unlock())
}
