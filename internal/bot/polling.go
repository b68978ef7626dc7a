package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/markdave123-py/fieldreport/internal/logger"
)

// RunPolling feeds long-polled updates to the dispatcher until ctx is done or
// the channel closes. stop is called once on the way out.
func RunPolling(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func(), d *Dispatcher, log logger.ILogger) {
	defer stop()
	log.Info(module, "Listening for updates", nil)

	for {
		select {
		case <-ctx.Done():
			log.Info(module, "Polling stopped", nil)
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if err := d.Enqueue(ctx, upd); err != nil {
				log.Warn(module, "Update dropped", map[string]interface{}{"update_id": upd.UpdateID, "error": err})
				return
			}
		}
	}
}
