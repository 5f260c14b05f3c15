package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSV出力。帳票は事務室の Excel でそのまま開ける想定なので
// Windows-1252 に変換して書き出す（スペイン語のアクセント記号対策）。

var csvHeader = []string{
	"tipo", "id", "nombre", "nivel", "grado", "seccion", "turno",
	"dias_esperados", "presente", "tardanza", "falta", "falta_justificada",
	"salida_anticipada", "salida_anticipada_justificada", "sin_salida",
}

// WriteCSV: 集計結果を w に書き出す
func WriteCSV(w io.Writer, stats *Statistics) error {
	enc := transform.NewWriter(w, charmap.Windows1252.NewEncoder())
	cw := csv.NewWriter(enc)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range stats.Attendables {
		rec := []string{
			a.AttendableType,
			strconv.FormatUint(a.AttendableID, 10),
			a.FullName,
			a.Level,
			a.Grade,
			a.Section,
			a.Shift,
			strconv.Itoa(a.Counts.ExpectedDays),
			strconv.Itoa(a.Counts.Present),
			strconv.Itoa(a.Counts.Late),
			strconv.Itoa(a.Counts.Absent),
			strconv.Itoa(a.Counts.AbsentJustified),
			strconv.Itoa(a.Counts.EarlyExit),
			strconv.Itoa(a.Counts.EarlyExitJustified),
			strconv.Itoa(a.Counts.NotExited),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return enc.Close()
}
