package postgres

import (
	"bytes"
	"testing"
	"time"

	"wikistore/internal/delta"
	"wikistore/internal/domain/models"
)

// buildRows encodes contents into stored chain rows the way the
// archive stores write them: first full, the rest deltas.
func buildRows(t *testing.T, contents ...string) []archiveRow {
	t.Helper()
	var rows []archiveRow
	var chain []models.AttachmentRevision
	for i, c := range contents {
		isFull, payload := nextChainPayload(chain, []byte(c))
		if (i == 0) != isFull {
			t.Fatalf("revision %d: isFull = %v", i, isFull)
		}
		rev := models.AttachmentRevision{
			Version: models.NextVersion(versionOf(chain), false),
			Date:    time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Content: []byte(c),
		}
		rows = append(rows, archiveRow{
			version: rev.Version,
			date:    rev.Date,
			isFull:  isFull,
			payload: payload,
		})
		chain = append(chain, rev)
	}
	return rows
}

func versionOf(chain []models.AttachmentRevision) string {
	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1].Version
}

func TestMaterializeChainReconstructsEveryRevision(t *testing.T) {
	contents := []string{
		"first draft",
		"first draft, revised",
		"completely different text",
		"completely different text with a tail",
		"",
	}
	rows := buildRows(t, contents...)

	revisions, err := materializeChain(rows)
	if err != nil {
		t.Fatalf("materializeChain() error = %v", err)
	}
	if len(revisions) != len(contents) {
		t.Fatalf("got %d revisions, want %d", len(revisions), len(contents))
	}
	for i, rev := range revisions {
		if string(rev.Content) != contents[i] {
			t.Errorf("revision %d content = %q, want %q", i, rev.Content, contents[i])
		}
	}
}

func TestMaterializeChainEmpty(t *testing.T) {
	revisions, err := materializeChain(nil)
	if err != nil {
		t.Fatalf("materializeChain(nil) error = %v", err)
	}
	if revisions != nil {
		t.Errorf("got %v, want nil", revisions)
	}
}

func TestMaterializeChainRejectsBrokenDelta(t *testing.T) {
	rows := []archiveRow{
		{version: "1.1", isFull: true, payload: []byte("base")},
		{version: "1.2", isFull: false, payload: []byte("not a delta")},
	}
	if _, err := materializeChain(rows); err == nil {
		t.Fatal("materializeChain() accepted a corrupt delta payload")
	}
}

func TestNextChainPayloadFirstIsFull(t *testing.T) {
	isFull, payload := nextChainPayload(nil, []byte("hello"))
	if !isFull {
		t.Error("first link is not a full snapshot")
	}
	if string(payload) != "hello" {
		t.Errorf("payload = %q, want %q", payload, "hello")
	}
}

func TestNextChainPayloadDeltaRoundTrips(t *testing.T) {
	chain := []models.AttachmentRevision{{Version: "1.1", Content: []byte("hello world")}}
	isFull, payload := nextChainPayload(chain, []byte("hello brave world"))
	if isFull {
		t.Fatal("later link stored as full snapshot")
	}
	got, err := delta.Apply(chain[0].Content, payload)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !bytes.Equal(got, []byte("hello brave world")) {
		t.Errorf("Apply() = %q, want %q", got, "hello brave world")
	}
}

func TestChainHasVersion(t *testing.T) {
	chain := []models.AttachmentRevision{{Version: "1.1"}, {Version: "1.2"}}
	if !chainHasVersion(chain, "1.2") {
		t.Error("chainHasVersion(1.2) = false")
	}
	if chainHasVersion(chain, "1.3") {
		t.Error("chainHasVersion(1.3) = true")
	}
	if chainHasVersion(nil, "1.1") {
		t.Error("chainHasVersion on empty chain = true")
	}
}
