// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is one text run placed at X, Y (PDF points, origin bottom-left).
type Line struct {
	X, Y float64
	Size float64
	Text string
}

// Document returns a one-page US Letter PDF containing lines in Helvetica.
func Document(lines ...Line) []byte {
	var content strings.Builder
	for _, l := range lines {
		size := l.Size
		if size == 0 {
			size = 12
		}
		fmt.Fprintf(&content, "BT /F1 %.0f Tf %.2f %.2f Td (%s) Tj ET\n", size, l.X, l.Y, escape(l.Text))
	}
	stream := content.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Resume returns a document resembling a one-page résumé.
func Resume() []byte {
	return Document(
		Line{X: 72, Y: 720, Size: 20, Text: "Jane Doe"},
		Line{X: 72, Y: 696, Text: "Backend Engineer"},
		Line{X: 72, Y: 660, Text: "Experience: Go, Postgres, Redis"},
	)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
