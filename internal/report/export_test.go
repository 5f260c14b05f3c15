package report

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func TestWriteCSV(t *testing.T) {
	stats := &Statistics{
		From: "2025-04-01", To: "2025-04-30",
		Attendables: []AttendableStats{
			{
				AttendableType: "STUDENT", AttendableID: 7, FullName: "María Ñahui",
				Level: "primaria", Grade: "3", Section: "A", Shift: "morning",
				Counts: Counts{Present: 18, Late: 2, ExpectedDays: 20, NotExited: 1},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, stats); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	// Windows-1252 で出力されるので読み戻しにはデコードが要る
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := string(decoded)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "tipo,id,nombre") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "María Ñahui") {
		t.Errorf("row lost accented name: %q", lines[1])
	}
	if !strings.Contains(lines[1], ",18,2,") {
		t.Errorf("row = %q", lines[1])
	}

	// 生のバイト列に UTF-8 の2バイト表現が残っていないこと
	if bytes.Contains(buf.Bytes(), []byte("í")) {
		t.Error("output is still UTF-8 encoded")
	}
}
