// Package baseline holds the trusted snapshot of monitored files and persists it.
//
// A Snapshot is an ordered set of FileRecords keyed by path; a path never
// appears twice. The FileStore keeps one snapshot on disk as a quoted CSV file:
//
//	"/usr/bin/ls","9f2c...","1717171717","142312"
//
// Fields are path, hex digest, modification time (unix seconds) and size in
// bytes. Embedded quotes are doubled, so paths containing commas or quotes
// round-trip. Files written by older releases, whose third field is a
// human-readable timestamp such as "Mon Jan  2 15:04:05 2006" and whose rows
// may end in a trailing comma, are still readable.
//
// Replace never rewrites the baseline in place: the new snapshot is written to
// a temporary file in the same directory and renamed over the old one, so a
// reader sees either the old or the new content.
package baseline
