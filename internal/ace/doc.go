// Package ace reconciles and commands an ACE multi-slot filament changer.
//
// The device is driven with fire-and-forget G-code and answers, if at all,
// with free-text lines some time later. Three writers feed one in-memory
// Cache:
//
//   - Listener: firmware output, classified by Classify
//   - Persistence: the persisted variable store (ace_inventory and friends)
//   - Dispatcher: optimistic writes for commands it has just sent
//
// The last write to a field wins whatever its source. A Poller re-queries
// the device on a fixed interval so stale optimistic values get corrected.
//
// # Data flow
//
//	caller → Dispatcher ─┬→ Cache (optimistic)
//	                     └→ Sender → firmware
//	firmware → line → Listener → Classify → Cache (device)
//	store change → Persistence → Cache (persisted)
//	Cache → observers (state topic, WebSocket hub, history, metrics)
//
// # Usage
//
//	cache := ace.NewCache()
//	listener := ace.NewListener(cache)
//	channel.Start(ctx, listener.HandleLine)
//
//	dispatcher := ace.NewDispatcher(cache, channel)
//	if err := dispatcher.Load(ctx, 2); errors.Is(err, ace.ErrSlotEmpty) {
//	    // nothing to load
//	}
package ace
