package certificate

import (
	"bytes"
	"testing"
	"time"
)

func TestRenderProducesPDF(t *testing.T) {
	pdf, err := Render(Details{
		StudentName: "Ada Lovelace",
		CourseTitle: "Distributed Systems",
		CompletedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Percentage:  92,
		Serial:      "cert-0001",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output does not start with a PDF header")
	}
	if len(pdf) < 1000 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(pdf))
	}
}

func TestRenderHandlesEmptyFields(t *testing.T) {
	pdf, err := Render(Details{})
	if err != nil {
		t.Fatalf("Render with zero details: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("output does not start with a PDF header")
	}
}
