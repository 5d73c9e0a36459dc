package cart

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/marketplace-cart/api/responses"
	cartsvc "github.com/angelmondragon/marketplace-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

// SnapshotSource is the subscription side of the cart store.
type SnapshotSource interface {
	Subscribe() (<-chan cartsvc.Snapshot, func())
}

// CartEvents streams one server-sent "snapshot" event per published cart
// version, starting with the current one. A comment line is sent every
// heartbeat to keep idle proxies from closing the stream.
func CartEvents(src SnapshotSource, logg *logger.Logger, heartbeat time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cartsvc.FromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if src == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnavailable, "cart events unavailable"))
			return
		}

		rc := http.NewResponseController(w)
		snaps, cancel := src.Subscribe()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "cart events: streaming unsupported")
			return
		}

		var tick <-chan time.Time
		if heartbeat > 0 {
			ticker := time.NewTicker(heartbeat)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case <-tick:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case snap, ok := <-snaps:
				if !ok {
					fmt.Fprint(w, "event: closed\ndata: {}\n\n")
					_ = rc.Flush()
					return
				}
				payload, err := json.Marshal(newCart(c, snap))
				if err != nil {
					logg.Error(r.Context(), "cart events: encode snapshot", err)
					return
				}
				if _, err := fmt.Fprintf(w, "event: snapshot\nid: %d\ndata: %s\n\n", snap.Version(), payload); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
