package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

const csvFlushEvery = 200

var csvHeader = []string{"occurred_at", "actor_id", "actor_email", "action", "entity", "entity_id", "meta"}

// WriteCSV streams rows as CRLF-terminated CSV with a header line. Meta is
// written as a JSON object.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	buf := bufio.NewWriterSize(w, 32*1024)
	out := csv.NewWriter(buf)
	out.UseCRLF = true
	if err := out.Write(csvHeader); err != nil {
		return err
	}
	for i, row := range rows {
		meta := "{}"
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return err
			}
			meta = string(raw)
		}
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.ActorEmail,
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		}
		if err := out.Write(record); err != nil {
			return err
		}
		if (i+1)%csvFlushEvery == 0 {
			out.Flush()
			if err := out.Error(); err != nil {
				return err
			}
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	return buf.Flush()
}
