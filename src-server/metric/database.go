package metric

import (
	"context"
	"time"

	"duocal/src-server/model"
	"duocal/src-server/utils"
)

// database measures one empty read against the rules table.
func database(as *utils.AppState) (time.Duration, error) {
	start := time.Now()
	if _, err := as.BunDB.NewSelect().
		Model((*model.RecurrenceRule)(nil)).
		Where("couple_id = ?", "").
		Exists(context.Background()); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
