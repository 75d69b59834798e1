// Package audit records vault activity to a JSON Lines file.
//
// Each line is one filevault.Activity:
//
//	{"ts":"2025-01-02T03:04:05Z","owner":"alice","action":"file.upload","file_id":"...","file_name":"q3.txt"}
//
// Entries never contain file content, passphrases or key material. Pass a
// Log to filevault.WithRecorder to enable it.
package audit
