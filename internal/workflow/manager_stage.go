package workflow

import (
	"context"
	"errors"
	"sync"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/stageexec"
)

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	stg, ok := m.stageForStatus(item.Status)
	if !ok {
		m.logger.Warn("no stage configured for status",
			logging.String("status", string(item.Status)))
		m.waitForItemOrShutdown(ctx)
		return nil
	}

	// The heartbeat loop keeps the item claimed while the stage runs; a
	// daemon crash leaves a stale heartbeat for the reclaimer to pick up.
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	err := stageexec.Run(ctx, stageexec.Options{
		Logger:     m.logger,
		Store:      m.store,
		Notifier:   m.notifier,
		Handler:    stg.handler,
		StageName:  stg.name,
		Processing: stg.processingStatus,
		Done:       stg.doneStatus,
		Item:       item,
	})
	hbCancel()
	hbWG.Wait()

	m.setLastItem(item)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.setLastError(err)
		}
		return err
	}
	return nil
}
