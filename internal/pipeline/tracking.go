package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/store"
)

// RecordLoad assigns a run id to a finished load and, when the store is
// enabled, persists its diagnostics and quarantined rows. Store failures are
// logged, never returned: diagnostics must not take a page down.
func RecordLoad(page string, jt *model.JoinedTable) model.LoadRun {
	run := model.LoadRun{
		ID:          uuid.New().String(),
		Page:        page,
		ContentHash: jt.ContentHash,
		FactRows:    jt.Diagnostics.FactRows,
		JoinedRows:  jt.Diagnostics.JoinedRows,
		Quarantined: len(jt.Diagnostics.Quarantined),
		Dropped:     jt.Diagnostics.Dropped,
		CreatedAt:   time.Now().UTC(),
	}

	if !store.Enabled() {
		return run
	}
	if err := store.SaveLoadRun(run); err != nil {
		log.Printf("❌ Failed to save load run %s: %v\n", run.ID, err)
		return run
	}
	if len(jt.Diagnostics.Quarantined) > 0 {
		if err := store.SaveQuarantinedRows(run.ID, jt.Diagnostics.Quarantined); err != nil {
			log.Printf("❌ Failed to save quarantined rows for run %s: %v\n", run.ID, err)
		}
	}
	return run
}
