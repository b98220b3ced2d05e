package storage_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Luks9/SMS/internal/storage"
)

func TestFSStorePutGetRoundTrip(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := storage.AttachmentKey(storage.KindRespondent, "evidence.pdf",
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	got, err := s.Put(key, strings.NewReader("scan bytes"))
	if err != nil {
		t.Fatal(err)
	}
	if got != key {
		t.Fatalf("Put returned %q, want the input key", got)
	}

	rc, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "scan bytes" {
		t.Fatalf("read back %q", data)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../outside", "a/../../outside", "/etc/passwd"} {
		if _, err := s.Put(key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) accepted a key outside the root", key)
		}
		if _, err := s.Get(key); err == nil {
			t.Errorf("Get(%q) accepted a key outside the root", key)
		}
	}
}
