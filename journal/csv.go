package journal

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/rustyeddy/vault/asset"
)

var csvHeader = []string{"op_id", "time", "kind", "account", "requested", "amount", "shares", "total_shares", "status", "error"}

type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &CSV{w: w, f: f}, nil
}

func (j *CSV) Record(e Entry) error {
	err := j.w.Write([]string{
		e.OpID,
		e.Time.UTC().Format(time.RFC3339Nano),
		string(e.Kind),
		string(e.Account),
		asset.Format(e.Requested),
		asset.Format(e.Amount),
		asset.Format(e.Shares),
		asset.Format(e.TotalShares),
		string(e.Status),
		e.Error,
	})
	if err != nil {
		return err
	}

	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}
