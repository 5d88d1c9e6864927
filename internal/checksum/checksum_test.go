package checksum

import "testing"

func TestBlobMatchesGit(t *testing.T) {
	// git hash-object of an empty file and of "hello\n".
	if got := Blob(nil); got != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Errorf("empty blob = %s", got)
	}
	if got := Blob([]byte("hello\n")); got != "ce013625030ba8dba906f756967f9e9ca394464a" {
		t.Errorf("hello blob = %s", got)
	}
}
